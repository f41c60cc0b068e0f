package campaignservice

import (
	"log/slog"
	"time"

	httpadapter "shepherd/contexts/giving/campaign-service/adapters/http"
	"shepherd/contexts/giving/campaign-service/adapters/memory"
	"shepherd/contexts/giving/campaign-service/application/commands"
	"shepherd/contexts/giving/campaign-service/application/queries"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	"shepherd/contexts/giving/campaign-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Campaigns      ports.CampaignRepository
	Contributions  ports.ContributionRepository
	Activations    ports.ActivationLogRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	createCampaign := commands.CreateCampaignUseCase{
		Campaigns:      deps.Campaigns,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	updateCampaign := commands.UpdateCampaignUseCase{
		Campaigns:     deps.Campaigns,
		Contributions: deps.Contributions,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
	}
	setActive := commands.SetActiveUseCase{
		Campaigns:   deps.Campaigns,
		Activations: deps.Activations,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	deleteCampaign := commands.DeleteCampaignUseCase{
		Campaigns: deps.Campaigns,
		Logger:    deps.Logger,
	}
	recordContribution := commands.RecordContributionUseCase{
		Contributions:  deps.Contributions,
		Campaigns:      deps.Campaigns,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	applyPaymentStatus := commands.ApplyPaymentStatusUseCase{
		Contributions: deps.Contributions,
		Outbox:        deps.Outbox,
		Clock:         deps.Clock,
		IDGenerator:   deps.IDGenerator,
		Logger:        deps.Logger,
	}

	listCampaigns := queries.ListCampaignsUseCase{
		Campaigns:     deps.Campaigns,
		Contributions: deps.Contributions,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
	}
	getCampaign := queries.GetCampaignUseCase{
		Campaigns:     deps.Campaigns,
		Contributions: deps.Contributions,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
	}
	listContributions := queries.ListContributionsUseCase{
		Campaigns:     deps.Campaigns,
		Contributions: deps.Contributions,
		Logger:        deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			CreateCampaign:     createCampaign,
			UpdateCampaign:     updateCampaign,
			SetActive:          setActive,
			DeleteCampaign:     deleteCampaign,
			RecordContribution: recordContribution,
			ApplyPaymentStatus: applyPaymentStatus,
			ListCampaigns:      listCampaigns,
			GetCampaign:        getCampaign,
			ListContributions:  listContributions,
			Logger:             deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Campaign, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Campaigns:      store,
		Contributions:  store,
		Activations:    store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGenerator:    store,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
