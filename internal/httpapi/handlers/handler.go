package handlers

import (
	"github.com/suPer8Hu/estate-chat/internal/auth"
	"github.com/suPer8Hu/estate-chat/internal/config"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"github.com/suPer8Hu/estate-chat/internal/property"
	"github.com/suPer8Hu/estate-chat/internal/turn"
	"gorm.io/gorm"
)

type Handler struct {
	Cfg        config.Config
	Log        *logger.Logger
	Accounts   *auth.Accounts
	Properties *property.Repository
	// Overviews is nil when no job queue is configured.
	Overviews *property.OverviewJobs
	Turns     *turn.Controller
}

type Deps struct {
	DB         *gorm.DB
	Cfg        config.Config
	Log        *logger.Logger
	Properties *property.Repository
	Overviews  *property.OverviewJobs
	Turns      *turn.Controller
}

func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Cfg:        d.Cfg,
		Log:        log.With("component", "http"),
		Accounts:   auth.NewAccounts(d.DB, d.Cfg.JWTSecret, auth.DefaultTokenTTL),
		Properties: d.Properties,
		Overviews:  d.Overviews,
		Turns:      d.Turns,
	}
}
