package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-renditions/internal/profile"
)

// LoadProfiles reads the full profile table, resolving each row to its
// image or video variant with any linked effect and watermark. This is the
// profile.Loader implementation backing the profile cache.
func (d *Database) LoadProfiles(ctx context.Context) ([]profile.Profile, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("load_profiles", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.kind, p.width, p.height, p.upscale, p.crop,
		       p.pre_cache, p.increment_count, p.quality,
		       p.video_type, p.twopass, p.letterbox, p.deinterlace,
		       p.video_bitrate, p.audio_bitrate,
		       e.id, e.name, e.transpose, e.color, e.brightness, e.contrast,
		       e.sharpness, e.filters, e.reflection_size, e.reflection_strength,
		       e.background_color,
		       w.id, w.name, w.file, w.style, w.opacity
		FROM profiles p
		LEFT JOIN effects e ON e.id = p.effect_id
		LEFT JOIN watermarks w ON w.id = p.watermark_id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []profile.Profile
	for rows.Next() {
		p, scanErr := scanProfile(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	err = rows.Err()
	return profiles, err
}

func scanProfile(rows *sql.Rows) (*profile.Profile, error) {
	var p profile.Profile
	var quality int
	var videoType string
	var twopass, letterbox, deinterlace bool
	var videoBitrate, audioBitrate int

	var effectID sql.NullInt64
	var effectName, transpose, filters, bgColor sql.NullString
	var color, brightness, contrast, sharpness, reflSize, reflStrength sql.NullFloat64

	var wmID sql.NullInt64
	var wmName, wmFile, wmStyle sql.NullString
	var wmOpacity sql.NullFloat64

	err := rows.Scan(&p.ID, &p.Name, &p.Kind, &p.Width, &p.Height, &p.Upscale, &p.Crop,
		&p.PreCache, &p.IncrementCount, &quality,
		&videoType, &twopass, &letterbox, &deinterlace,
		&videoBitrate, &audioBitrate,
		&effectID, &effectName, &transpose, &color, &brightness, &contrast,
		&sharpness, &filters, &reflSize, &reflStrength, &bgColor,
		&wmID, &wmName, &wmFile, &wmStyle, &wmOpacity)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case profile.KindImage:
		params := &profile.ImageParams{Quality: quality}
		if effectID.Valid {
			params.Effect = &profile.Effect{
				ID:                 effectID.Int64,
				Name:               effectName.String,
				Transpose:          profile.Transpose(transpose.String),
				Color:              color.Float64,
				Brightness:         brightness.Float64,
				Contrast:           contrast.Float64,
				Sharpness:          sharpness.Float64,
				Filters:            filters.String,
				ReflectionSize:     reflSize.Float64,
				ReflectionStrength: reflStrength.Float64,
				BackgroundColor:    bgColor.String,
			}
		}
		if wmID.Valid {
			params.Watermark = &profile.Watermark{
				ID:      wmID.Int64,
				Name:    wmName.String,
				File:    wmFile.String,
				Style:   profile.WatermarkStyle(wmStyle.String),
				Opacity: wmOpacity.Float64,
			}
		}
		p.Image = params
	case profile.KindVideo:
		p.Video = &profile.VideoParams{
			Type:         profile.VideoType(videoType),
			TwoPass:      twopass,
			Letterbox:    letterbox,
			Deinterlace:  deinterlace,
			VideoBitrate: videoBitrate,
			AudioBitrate: audioBitrate,
		}
	default:
		return nil, fmt.Errorf("profile %q: unknown kind %q", p.Name, p.Kind)
	}

	return &p, nil
}

// SaveProfile validates and upserts a profile. Callers must invalidate the
// profile cache afterwards.
func (d *Database) SaveProfile(ctx context.Context, p *profile.Profile) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_profile", start, err) }()

	if err = p.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var quality int
	var effectID, wmID any
	var videoType string
	var twopass, letterbox, deinterlace bool
	var videoBitrate, audioBitrate int

	switch p.Kind {
	case profile.KindImage:
		quality = p.Image.Quality
		if p.Image.Effect != nil {
			effectID = p.Image.Effect.ID
		}
		if p.Image.Watermark != nil {
			wmID = p.Image.Watermark.ID
		}
		videoType = string(profile.VideoMP4)
	case profile.KindVideo:
		quality = 70
		videoType = string(p.Video.Type)
		twopass = p.Video.TwoPass
		letterbox = p.Video.Letterbox
		deinterlace = p.Video.Deinterlace
		videoBitrate = p.Video.VideoBitrate
		audioBitrate = p.Video.AudioBitrate
	}

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO profiles (name, kind, width, height, upscale, crop, pre_cache,
			increment_count, quality, effect_id, watermark_id, video_type, twopass,
			letterbox, deinterlace, video_bitrate, audio_bitrate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, kind) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			upscale = excluded.upscale,
			crop = excluded.crop,
			pre_cache = excluded.pre_cache,
			increment_count = excluded.increment_count,
			quality = excluded.quality,
			effect_id = excluded.effect_id,
			watermark_id = excluded.watermark_id,
			video_type = excluded.video_type,
			twopass = excluded.twopass,
			letterbox = excluded.letterbox,
			deinterlace = excluded.deinterlace,
			video_bitrate = excluded.video_bitrate,
			audio_bitrate = excluded.audio_bitrate
	`, p.Name, p.Kind, p.Width, p.Height, p.Upscale, p.Crop, p.PreCache,
		p.IncrementCount, quality, effectID, wmID, videoType, twopass,
		letterbox, deinterlace, videoBitrate, audioBitrate)
	if err != nil {
		return fmt.Errorf("failed to save profile %q: %w", p.Name, err)
	}

	if p.ID == 0 {
		if id, idErr := result.LastInsertId(); idErr == nil {
			p.ID = id
		}
	}
	return nil
}

// GetProfileID resolves the row id for a (name, kind) pair.
func (d *Database) GetProfileID(ctx context.Context, name string, kind profile.Kind) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_profile_id", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var id int64
	err = d.db.QueryRowContext(ctx, `SELECT id FROM profiles WHERE name = ? AND kind = ?`, name, kind).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return id, err
}

// DeleteProfile removes a profile row. Jobs and overrides referencing it
// are removed by cascade. Callers must invalidate the profile cache.
func (d *Database) DeleteProfile(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_profile", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	return err
}

// SaveEffect upserts a named enhancement chain.
func (d *Database) SaveEffect(ctx context.Context, e *profile.Effect) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_effect", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO effects (name, transpose, color, brightness, contrast, sharpness,
			filters, reflection_size, reflection_strength, background_color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			transpose = excluded.transpose,
			color = excluded.color,
			brightness = excluded.brightness,
			contrast = excluded.contrast,
			sharpness = excluded.sharpness,
			filters = excluded.filters,
			reflection_size = excluded.reflection_size,
			reflection_strength = excluded.reflection_strength,
			background_color = excluded.background_color
	`, e.Name, e.Transpose, e.Color, e.Brightness, e.Contrast, e.Sharpness,
		e.Filters, e.ReflectionSize, e.ReflectionStrength, e.BackgroundColor)
	if err != nil {
		return fmt.Errorf("failed to save effect %q: %w", e.Name, err)
	}

	if e.ID == 0 {
		if id, idErr := result.LastInsertId(); idErr == nil {
			e.ID = id
		}
	}
	return nil
}

// SaveWatermark upserts a named watermark overlay.
func (d *Database) SaveWatermark(ctx context.Context, w *profile.Watermark) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_watermark", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO watermarks (name, file, style, opacity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			file = excluded.file,
			style = excluded.style,
			opacity = excluded.opacity
	`, w.Name, w.File, w.Style, w.Opacity)
	if err != nil {
		return fmt.Errorf("failed to save watermark %q: %w", w.Name, err)
	}

	if w.ID == 0 {
		if id, idErr := result.LastInsertId(); idErr == nil {
			w.ID = id
		}
	}
	return nil
}
