package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-renditions/internal/profile"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const assetColumns = `id, file, kind, COALESCE(date_taken, 0), view_count, crop_from, width, height, duration, COALESCE(poster_id, 0)`

func scanAsset(row interface{ Scan(...any) error }) (*Asset, error) {
	var a Asset
	var dateTaken int64
	err := row.Scan(&a.ID, &a.File, &a.Kind, &dateTaken, &a.ViewCount, &a.CropFrom,
		&a.Width, &a.Height, &a.Duration, &a.PosterID)
	if err != nil {
		return nil, err
	}
	if dateTaken != 0 {
		a.DateTaken = time.Unix(dateTaken, 0)
	}
	return &a, nil
}

// CreateAsset inserts a new asset row and returns it with its id set.
func (d *Database) CreateAsset(ctx context.Context, a *Asset) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if a.CropFrom == "" {
		a.CropFrom = profile.AnchorCenter
	}
	if a.DateTaken.IsZero() {
		a.DateTaken = time.Now()
	}

	var posterID any
	if a.PosterID != 0 {
		posterID = a.PosterID
	}

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO assets (file, kind, date_taken, crop_from, width, height, duration, poster_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.File, a.Kind, a.DateTaken.Unix(), a.CropFrom, a.Width, a.Height, a.Duration, posterID)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	a.ID, err = result.LastInsertId()
	return err
}

// GetAsset retrieves a single asset by id.
func (d *Database) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	a, scanErr := scanAsset(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	err = scanErr
	return a, err
}

// GetAssetByFile retrieves a single asset by its original file path.
func (d *Database) GetAssetByFile(ctx context.Context, file string) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_asset_by_file", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE file = ?`, file)
	a, scanErr := scanAsset(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	err = scanErr
	return a, err
}

// ListAssets returns all assets of the given kind; pass an empty kind for
// every asset.
func (d *Database) ListAssets(ctx context.Context, kind profile.Kind) ([]*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_assets", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := `SELECT ` + assetColumns + ` FROM assets`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id`

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		a, scanErr := scanAsset(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		assets = append(assets, a)
	}
	err = rows.Err()
	return assets, err
}

// UpdateAssetProbe stores probed video metadata on the asset row.
func (d *Database) UpdateAssetProbe(ctx context.Context, id int64, width, height int, duration float64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_asset_probe", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE assets
		SET width = ?, height = ?, duration = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, width, height, duration, id)
	return err
}

// SetAssetPoster links a poster image asset to a video asset.
func (d *Database) SetAssetPoster(ctx context.Context, id, posterID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_asset_poster", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE assets SET poster_id = ?, updated_at = strftime('%s', 'now') WHERE id = ?
	`, posterID, id)
	return err
}

// UpdateAssetFile changes the stored original file path, used by rename
// operations together with Asset.PreventCacheClear.
func (d *Database) UpdateAssetFile(ctx context.Context, id int64, file string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_asset_file", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE assets SET file = ?, updated_at = strftime('%s', 'now') WHERE id = ?
	`, file, id)
	return err
}

// IncrementViewCount bumps the view counter for an asset.
func (d *Database) IncrementViewCount(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("increment_view_count", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `UPDATE assets SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

// DeleteAsset removes the asset row. Overrides and jobs referencing it are
// removed by foreign key cascade; derivative files are the lifecycle
// manager's responsibility.
func (d *Database) DeleteAsset(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	return err
}
