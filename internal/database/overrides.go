package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetOverride returns the effective override for an (asset, profile) pair,
// or nil when none exists. If duplicate rows exist the first by id wins;
// this ambiguity is inherited from the data model, not resolved here.
func (d *Database) GetOverride(ctx context.Context, assetID, profileID int64) (*Override, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_override", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var o Override
	err = d.db.QueryRowContext(ctx, `
		SELECT id, asset_id, profile_id, source_asset_id
		FROM overrides
		WHERE asset_id = ? AND profile_id = ?
		ORDER BY id
		LIMIT 1
	`, assetID, profileID).Scan(&o.ID, &o.AssetID, &o.ProfileID, &o.SourceAssetID)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SetOverride records an alternate generation source for one derivative.
func (d *Database) SetOverride(ctx context.Context, o *Override) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_override", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO overrides (asset_id, profile_id, source_asset_id)
		VALUES (?, ?, ?)
	`, o.AssetID, o.ProfileID, o.SourceAssetID)
	if err != nil {
		return err
	}

	o.ID, err = result.LastInsertId()
	return err
}

// DeleteOverride removes an override row.
func (d *Database) DeleteOverride(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_override", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `DELETE FROM overrides WHERE id = ?`, id)
	return err
}
