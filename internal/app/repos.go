package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/repos"
)

type Repos struct {
	Brain  repos.BrainRepo
	Source repos.SourceRepo
	Chat   repos.ChatRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Brain:  repos.NewBrainRepo(db, log),
		Source: repos.NewSourceRepo(db, log),
		Chat:   repos.NewChatRepo(db, log),
	}
}
