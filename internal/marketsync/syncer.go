// Package marketsync reconciles a platform's market and contract universe
// into the store. One Syncer runs per platform, driven by a runner loop.
//
// A cycle fetches the complete listing, groups flat contracts into markets,
// derives market titles, upserts everything, deactivates rows absent from
// the listing, and hands new or retitled markets to the embedder.
package marketsync

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/model"
	"github.com/oddsline/newsflow/internal/runner"
	"github.com/oddsline/newsflow/internal/store"
)

// DeactivationBatchSize bounds ids per deactivation statement, keeping well
// below the store's bound-parameter limit.
const DeactivationBatchSize = 10000

// Store is the persistence surface the syncer needs.
type Store interface {
	GetMarketByKey(ctx context.Context, platform, eventTicker string) (*model.Market, error)
	InsertMarket(ctx context.Context, m model.Market) (int64, error)
	UpdateMarketSynced(ctx context.Context, id int64, title, url, category string, endDate *time.Time) error
	TouchMarket(ctx context.Context, id int64) error

	GetContractByTicker(ctx context.Context, ticker string) (*model.Contract, error)
	InsertContract(ctx context.Context, c model.Contract) (int64, error)
	UpdateContractSynced(ctx context.Context, id int64, c model.Contract) error
	TouchContract(ctx context.Context, id int64) error

	ActiveMarketRefs(ctx context.Context, platform string) ([]store.MarketRef, error)
	ActiveContractRefs(ctx context.Context, platform string) ([]store.ContractRef, error)
	DeactivateMarkets(ctx context.Context, ids []int64, batchSize int) (int64, error)
	DeactivateContracts(ctx context.Context, ids []int64, batchSize int) (int64, error)
}

// MarketEmbedder generates and stores embeddings for markets. Implemented by
// the pipeline's embedder; the syncer invokes it opportunistically instead of
// running a separate market polling worker.
type MarketEmbedder interface {
	EmbedMarkets(ctx context.Context, markets []model.Market) (int, error)
}

// Config tunes one syncer.
type Config struct {
	// EmbedPerCycle caps how many markets are handed to the embedder per
	// sync cycle, to avoid overwhelming the embedding capability.
	EmbedPerCycle int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{EmbedPerCycle: 200}
}

// Syncer reconciles one platform into the store.
type Syncer struct {
	cfg      Config
	platform capability.MarketPlatform
	store    Store
	embedder MarketEmbedder
	logger   *slog.Logger
}

// New creates a Syncer. The embedder may be nil in tests.
func New(cfg Config, platform capability.MarketPlatform, st Store, embedder MarketEmbedder, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EmbedPerCycle <= 0 {
		cfg.EmbedPerCycle = DefaultConfig().EmbedPerCycle
	}
	return &Syncer{
		cfg:      cfg,
		platform: platform,
		store:    st,
		embedder: embedder,
		logger:   logger.With("platform", platform.Name()),
	}
}

// RunOnce performs one full sync cycle. It is the syncer's runner.RunFunc.
func (s *Syncer) RunOnce(ctx context.Context) runner.Outcome {
	start := time.Now()

	listing, err := s.platform.ListAll(ctx)
	if err != nil {
		return runner.Failed(fmt.Errorf("list markets: %w", err))
	}

	groups := s.groupListing(listing)
	if len(groups) == 0 {
		s.logger.Debug("platform returned empty listing")
		return runner.Idle()
	}

	stats, embedCandidates, err := s.upsertGroups(ctx, groups)
	if err != nil {
		return runner.Failed(err)
	}

	// Deactivation happens after all upserts in the cycle.
	deactivated, err := s.deactivateStragglers(ctx, groups)
	if err != nil {
		return runner.Failed(err)
	}

	embedded := 0
	if s.embedder != nil && len(embedCandidates) > 0 {
		embedded, err = s.embedder.EmbedMarkets(ctx, embedCandidates)
		if err != nil {
			// Embeddings are refreshed on the next cycle; the sync itself
			// succeeded.
			s.logger.Error("market embedding failed", "error", err, "candidates", len(embedCandidates))
		}
	}

	s.logger.Info("sync cycle complete",
		"markets", len(groups),
		"markets_created", stats.marketsCreated,
		"markets_updated", stats.marketsUpdated,
		"contracts_created", stats.contractsCreated,
		"contracts_updated", stats.contractsUpdated,
		"deactivated", deactivated,
		"embedded", embedded,
		"duration", time.Since(start),
	)

	return runner.Worked()
}

// group is one market-to-be with its contracts.
type group struct {
	eventTicker  string
	seriesTicker string
	title        string
	url          string
	category     string
	endDate      *time.Time
	contracts    []model.ContractData
}

type syncStats struct {
	marketsCreated   int
	marketsUpdated   int
	contractsCreated int
	contractsUpdated int
}

// groupListing adapts either listing shape into groups. Grouped listings are
// used directly; flat listings are grouped by extracted event ticker, with
// unextractable contracts filed as singleton groups.
func (s *Syncer) groupListing(listing model.Listing) []group {
	if len(listing.Markets) > 0 {
		groups := make([]group, 0, len(listing.Markets))
		for _, m := range listing.Markets {
			title := m.Title
			if title == "" {
				title = DeriveMarketTitle(m.Contracts)
			}
			groups = append(groups, group{
				eventTicker:  m.EventTicker,
				seriesTicker: m.SeriesTicker,
				title:        title,
				url:          m.URL,
				category:     m.Category,
				endDate:      m.EndDate,
				contracts:    m.Contracts,
			})
		}
		return groups
	}

	byTicker := make(map[string]*group)
	var order []string
	for _, c := range listing.Contracts {
		ticker := ExtractEventTicker(c)
		if ticker == "" {
			ticker = UngroupedPrefix + c.ContractID
		}
		g, ok := byTicker[ticker]
		if !ok {
			g = &group{
				eventTicker:  ticker,
				seriesTicker: c.Metadata["seriesTicker"],
				url:          c.URL,
				category:     c.Category,
				endDate:      c.EndDate,
			}
			byTicker[ticker] = g
			order = append(order, ticker)
		}
		g.contracts = append(g.contracts, c)
	}

	groups := make([]group, 0, len(order))
	for _, ticker := range order {
		g := byTicker[ticker]
		g.title = DeriveMarketTitle(g.contracts)
		groups = append(groups, *g)
	}
	return groups
}

// upsertGroups writes every market and contract in the listing and collects
// embedding candidates: markets just created, retitled, or still missing an
// embedding.
func (s *Syncer) upsertGroups(ctx context.Context, groups []group) (syncStats, []model.Market, error) {
	var (
		stats      syncStats
		candidates []model.Market
	)

	for _, g := range groups {
		marketID, candidate, err := s.upsertMarket(ctx, g, &stats)
		if err != nil {
			return stats, nil, err
		}
		if candidate != nil && len(candidates) < s.cfg.EmbedPerCycle {
			candidates = append(candidates, *candidate)
		}

		for _, c := range g.contracts {
			if err := s.upsertContract(ctx, marketID, c, &stats); err != nil {
				return stats, nil, err
			}
		}
	}

	return stats, candidates, nil
}

// upsertMarket inserts or updates one market. It returns the market id and,
// when the market needs (re)embedding, the market itself.
func (s *Syncer) upsertMarket(ctx context.Context, g group, stats *syncStats) (int64, *model.Market, error) {
	existing, err := s.store.GetMarketByKey(ctx, s.platform.Name(), g.eventTicker)
	if err != nil {
		return 0, nil, fmt.Errorf("get market %s: %w", g.eventTicker, err)
	}

	m := model.Market{
		Platform:     s.platform.Name(),
		EventTicker:  g.eventTicker,
		SeriesTicker: g.seriesTicker,
		Title:        g.title,
		URL:          g.url,
		Category:     g.category,
		EndDate:      g.endDate,
	}

	if existing == nil {
		id, err := s.store.InsertMarket(ctx, m)
		if err != nil {
			return 0, nil, fmt.Errorf("insert market %s: %w", g.eventTicker, err)
		}
		stats.marketsCreated++
		m.ID = id
		return id, &m, nil
	}

	m.ID = existing.ID
	titleChanged := existing.Title != g.title

	if titleChanged || existing.URL != g.url || existing.Category != g.category {
		if err := s.store.UpdateMarketSynced(ctx, existing.ID, g.title, g.url, g.category, g.endDate); err != nil {
			return 0, nil, fmt.Errorf("update market %s: %w", g.eventTicker, err)
		}
		stats.marketsUpdated++
	} else {
		if err := s.store.TouchMarket(ctx, existing.ID); err != nil {
			return 0, nil, fmt.Errorf("touch market %s: %w", g.eventTicker, err)
		}
	}

	// Embeddings refresh on title change only; otherwise only when missing.
	if titleChanged || existing.Embedding == nil {
		return existing.ID, &m, nil
	}
	return existing.ID, nil, nil
}

// upsertContract inserts or updates one contract under its market.
func (s *Syncer) upsertContract(ctx context.Context, marketID int64, data model.ContractData, stats *syncStats) error {
	existing, err := s.store.GetContractByTicker(ctx, data.ContractID)
	if err != nil {
		return fmt.Errorf("get contract %s: %w", data.ContractID, err)
	}

	c := model.Contract{
		ContractTicker: data.ContractID,
		MarketID:       marketID,
		Title:          data.Title,
		YesPrice:       data.YesPrice,
		NoPrice:        data.NoPrice,
		Volume:         data.Volume,
		Liquidity:      data.Liquidity,
		Metadata:       data.Metadata,
	}

	if existing == nil {
		if _, err := s.store.InsertContract(ctx, c); err != nil {
			return fmt.Errorf("insert contract %s: %w", data.ContractID, err)
		}
		stats.contractsCreated++
		return nil
	}

	if contractChanged(*existing, c) {
		if err := s.store.UpdateContractSynced(ctx, existing.ID, c); err != nil {
			return fmt.Errorf("update contract %s: %w", data.ContractID, err)
		}
		stats.contractsUpdated++
		return nil
	}

	if err := s.store.TouchContract(ctx, existing.ID); err != nil {
		return fmt.Errorf("touch contract %s: %w", data.ContractID, err)
	}
	return nil
}

func contractChanged(prev, next model.Contract) bool {
	return prev.Title != next.Title ||
		prev.YesPrice != next.YesPrice ||
		prev.NoPrice != next.NoPrice ||
		prev.Volume != next.Volume ||
		prev.Liquidity != next.Liquidity ||
		!maps.Equal(prev.Metadata, next.Metadata)
}

// deactivateStragglers flips off every active market and contract of this
// platform that the cycle did not see.
func (s *Syncer) deactivateStragglers(ctx context.Context, groups []group) (int64, error) {
	seenMarkets := make(map[string]bool, len(groups))
	seenContracts := make(map[string]bool)
	for _, g := range groups {
		seenMarkets[g.eventTicker] = true
		for _, c := range g.contracts {
			seenContracts[c.ContractID] = true
		}
	}

	marketRefs, err := s.store.ActiveMarketRefs(ctx, s.platform.Name())
	if err != nil {
		return 0, fmt.Errorf("list active markets: %w", err)
	}
	var staleMarkets []int64
	for _, ref := range marketRefs {
		if !seenMarkets[ref.EventTicker] {
			staleMarkets = append(staleMarkets, ref.ID)
		}
	}

	contractRefs, err := s.store.ActiveContractRefs(ctx, s.platform.Name())
	if err != nil {
		return 0, fmt.Errorf("list active contracts: %w", err)
	}
	var staleContracts []int64
	for _, ref := range contractRefs {
		if !seenContracts[ref.ContractTicker] {
			staleContracts = append(staleContracts, ref.ID)
		}
	}

	var total int64
	n, err := s.store.DeactivateMarkets(ctx, staleMarkets, DeactivationBatchSize)
	if err != nil {
		return total, fmt.Errorf("deactivate markets: %w", err)
	}
	total += n

	n, err = s.store.DeactivateContracts(ctx, staleContracts, DeactivationBatchSize)
	if err != nil {
		return total, fmt.Errorf("deactivate contracts: %w", err)
	}
	total += n

	return total, nil
}
