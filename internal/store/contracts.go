package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oddsline/newsflow/internal/model"
)

// ContractRef is a lightweight (id, ticker) projection used by the syncer's
// deactivation pass.
type ContractRef struct {
	ID             int64
	ContractTicker string
}

// GetContractByTicker looks a contract up by ticker. Returns nil when absent.
func (s *Store) GetContractByTicker(ctx context.Context, ticker string) (*model.Contract, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE contract_ticker = $1
	`, ticker)

	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertContract creates a new active contract and returns its id.
func (s *Store) InsertContract(ctx context.Context, c model.Contract) (int64, error) {
	meta, err := json.Marshal(orEmpty(c.Metadata))
	if err != nil {
		return 0, fmt.Errorf("marshal contract metadata: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO contracts (contract_ticker, market_id, title, yes_price, no_price, volume, liquidity, is_active, last_synced_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now(), $8)
		RETURNING id
	`, c.ContractTicker, c.MarketID, c.Title, c.YesPrice, c.NoPrice, c.Volume, c.Liquidity, meta).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert contract: %w", err)
	}
	return id, nil
}

// UpdateContractSynced rewrites the sync-owned columns, reactivates the
// contract, and bumps last_synced_at.
func (s *Store) UpdateContractSynced(ctx context.Context, id int64, c model.Contract) error {
	meta, err := json.Marshal(orEmpty(c.Metadata))
	if err != nil {
		return fmt.Errorf("marshal contract metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE contracts
		SET title = $2, yes_price = $3, no_price = $4, volume = $5,
		    liquidity = $6, metadata = $7, is_active = TRUE, last_synced_at = now()
		WHERE id = $1
	`, id, c.Title, c.YesPrice, c.NoPrice, c.Volume, c.Liquidity, meta)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	return nil
}

// TouchContract reactivates an unchanged contract and bumps last_synced_at.
func (s *Store) TouchContract(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE contracts SET is_active = TRUE, last_synced_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("touch contract: %w", err)
	}
	return nil
}

// TopContractForMarket returns the market's highest-volume active contract,
// or nil when it has none. The validator feeds one contract per market to
// the LLM.
func (s *Store) TopContractForMarket(ctx context.Context, marketID int64) (*model.Contract, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE market_id = $1 AND is_active
		ORDER BY volume DESC
		LIMIT 1
	`, marketID)

	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ActiveContractRefs lists the id and ticker of every active contract whose
// market belongs to the platform.
func (s *Store) ActiveContractRefs(ctx context.Context, platform string) ([]ContractRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.contract_ticker
		FROM contracts c
		JOIN markets m ON m.id = c.market_id
		WHERE m.platform = $1 AND c.is_active
	`, platform)
	if err != nil {
		return nil, fmt.Errorf("query active contract refs: %w", err)
	}
	defer rows.Close()

	var refs []ContractRef
	for rows.Next() {
		var ref ContractRef
		if err := rows.Scan(&ref.ID, &ref.ContractTicker); err != nil {
			return nil, fmt.Errorf("scan contract ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// DeactivateContracts flips is_active off for the given ids, in batches.
func (s *Store) DeactivateContracts(ctx context.Context, ids []int64, batchSize int) (int64, error) {
	return s.deactivateByID(ctx, "contracts", ids, batchSize)
}

const contractColumns = `
	id, contract_ticker, market_id, title, yes_price, no_price, volume,
	liquidity, is_active, last_synced_at, metadata
`

func scanContract(row pgx.Row) (model.Contract, error) {
	var (
		c       model.Contract
		metaRaw []byte
	)
	err := row.Scan(
		&c.ID, &c.ContractTicker, &c.MarketID, &c.Title, &c.YesPrice,
		&c.NoPrice, &c.Volume, &c.Liquidity, &c.IsActive, &c.LastSyncedAt,
		&metaRaw,
	)
	if err != nil {
		return model.Contract{}, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &c.Metadata); err != nil {
			return model.Contract{}, fmt.Errorf("unmarshal contract metadata: %w", err)
		}
	}
	return c, nil
}
