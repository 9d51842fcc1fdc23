package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmaged/signfleet/internal/models"
)

type PostgresSetupRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSetupRepository(pool *pgxpool.Pool) *PostgresSetupRepository {
	return &PostgresSetupRepository{pool: pool}
}

// Create inserts the setup with its playlists and media in one transaction and
// links the listed devices. Returns the new setup ID.
func (r *PostgresSetupRepository) Create(ctx context.Context, input *models.SetupInput) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var setupID int64
	err = tx.QueryRow(ctx, `INSERT INTO setups (name) VALUES ($1) RETURNING id`, input.Name).Scan(&setupID)
	if err != nil {
		return 0, fmt.Errorf("failed to create setup: %w", err)
	}

	for _, playlist := range input.Playlists {
		if err := insertPlaylist(ctx, tx, setupID, playlist); err != nil {
			return 0, err
		}
	}

	for _, deviceID := range input.Devices {
		result, err := tx.Exec(ctx, `UPDATE devices SET setup_id = $1 WHERE id = $2`, setupID, deviceID)
		if err != nil {
			return 0, fmt.Errorf("failed to link device %d: %w", deviceID, err)
		}
		if result.RowsAffected() == 0 {
			return 0, fmt.Errorf("device %d: %w", deviceID, ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit setup: %w", err)
	}
	return setupID, nil
}

func insertPlaylist(ctx context.Context, tx pgx.Tx, setupID int64, playlist models.PlaylistInput) error {
	query := `INSERT INTO playlists
	          (setup_id, name, start_time, end_time, monday, tuesday, wednesday, thursday, friday, saturday, sunday)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`

	var playlistID int64
	err := tx.QueryRow(ctx, query,
		setupID,
		playlist.Name,
		playlist.StartTime,
		playlist.EndTime,
		playlist.Monday,
		playlist.Tuesday,
		playlist.Wednesday,
		playlist.Thursday,
		playlist.Friday,
		playlist.Saturday,
		playlist.Sunday,
	).Scan(&playlistID)
	if err != nil {
		return fmt.Errorf("failed to create playlist %s: %w", playlist.Name, err)
	}

	for _, image := range playlist.Images {
		_, err := tx.Exec(ctx, `INSERT INTO images (playlist_id, url, duration) VALUES ($1, $2, $3)`,
			playlistID, image.URL, image.Duration)
		if err != nil {
			return fmt.Errorf("failed to add image: %w", err)
		}
	}

	for _, videoURL := range playlist.Videos {
		_, err := tx.Exec(ctx, `INSERT INTO videos (playlist_id, url) VALUES ($1, $2)`,
			playlistID, videoURL)
		if err != nil {
			return fmt.Errorf("failed to add video: %w", err)
		}
	}

	return nil
}

func (r *PostgresSetupRepository) GetByName(ctx context.Context, name string) (*models.Setup, error) {
	var setup models.Setup
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM setups WHERE name = $1`, name).
		Scan(&setup.ID, &setup.Name)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setup: %w", err)
	}
	return &setup, nil
}

func (r *PostgresSetupRepository) GetByID(ctx context.Context, id int64) (*models.SetupDetail, error) {
	var detail models.SetupDetail
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM setups WHERE id = $1`, id).
		Scan(&detail.ID, &detail.Name)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setup: %w", err)
	}

	if err := r.loadSetupContents(ctx, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *PostgresSetupRepository) List(ctx context.Context) ([]*models.SetupDetail, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM setups ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query setups: %w", err)
	}
	defer rows.Close()

	var setups []*models.SetupDetail
	for rows.Next() {
		var detail models.SetupDetail
		if err := rows.Scan(&detail.ID, &detail.Name); err != nil {
			return nil, fmt.Errorf("failed to scan setup: %w", err)
		}
		setups = append(setups, &detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating setups: %w", err)
	}

	for _, detail := range setups {
		if err := r.loadSetupContents(ctx, detail); err != nil {
			return nil, err
		}
	}
	return setups, nil
}

func (r *PostgresSetupRepository) loadSetupContents(ctx context.Context, detail *models.SetupDetail) error {
	playlists, err := r.loadPlaylists(ctx, detail.ID)
	if err != nil {
		return err
	}
	detail.Playlists = playlists

	deviceRows, err := r.pool.Query(ctx,
		`SELECT id, name, location FROM devices WHERE setup_id = $1 ORDER BY id ASC`, detail.ID)
	if err != nil {
		return fmt.Errorf("failed to query linked devices: %w", err)
	}
	defer deviceRows.Close()

	detail.Devices = []models.DeviceRef{}
	for deviceRows.Next() {
		var (
			id             int64
			name, location string
		)
		if err := deviceRows.Scan(&id, &name, &location); err != nil {
			return fmt.Errorf("failed to scan linked device: %w", err)
		}
		detail.Devices = append(detail.Devices, models.DeviceRef{
			ID:   id,
			Data: fmt.Sprintf("%s - %s", name, location),
		})
	}
	return deviceRows.Err()
}

func (r *PostgresSetupRepository) loadPlaylists(ctx context.Context, setupID int64) ([]models.PlaylistDetail, error) {
	query := `SELECT id, setup_id, name, start_time, end_time,
	                 monday, tuesday, wednesday, thursday, friday, saturday, sunday
	          FROM playlists WHERE setup_id = $1 ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, setupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.PlaylistDetail{}
	for rows.Next() {
		var p models.Playlist
		err := rows.Scan(
			&p.ID, &p.SetupID, &p.Name, &p.StartTime, &p.EndTime,
			&p.Monday, &p.Tuesday, &p.Wednesday, &p.Thursday, &p.Friday, &p.Saturday, &p.Sunday,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, models.PlaylistDetail{Playlist: p})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating playlists: %w", err)
	}

	for i := range playlists {
		images, videos, err := r.loadMedia(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].Images = images
		playlists[i].Videos = videos
	}
	return playlists, nil
}

func (r *PostgresSetupRepository) loadMedia(ctx context.Context, playlistID int64) ([]models.Image, []models.Video, error) {
	imageRows, err := r.pool.Query(ctx,
		`SELECT id, playlist_id, url, duration FROM images WHERE playlist_id = $1 ORDER BY id ASC`, playlistID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer imageRows.Close()

	images := []models.Image{}
	for imageRows.Next() {
		var image models.Image
		if err := imageRows.Scan(&image.ID, &image.PlaylistID, &image.URL, &image.Duration); err != nil {
			return nil, nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, image)
	}
	if err := imageRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating images: %w", err)
	}

	videoRows, err := r.pool.Query(ctx,
		`SELECT id, playlist_id, url FROM videos WHERE playlist_id = $1 ORDER BY id ASC`, playlistID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer videoRows.Close()

	videos := []models.Video{}
	for videoRows.Next() {
		var video models.Video
		if err := videoRows.Scan(&video.ID, &video.PlaylistID, &video.URL); err != nil {
			return nil, nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := videoRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating videos: %w", err)
	}

	return images, videos, nil
}

// Update applies a setup patch in one transaction. Referenced playlists and
// media that no longer exist are skipped rather than failing the whole patch.
func (r *PostgresSetupRepository) Update(ctx context.Context, id int64, update *models.SetupUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var setupID int64
	err = tx.QueryRow(ctx, `SELECT id FROM setups WHERE id = $1`, id).Scan(&setupID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get setup: %w", err)
	}

	if update.Name != nil {
		if _, err := tx.Exec(ctx, `UPDATE setups SET name = $1 WHERE id = $2`, *update.Name, id); err != nil {
			return fmt.Errorf("failed to rename setup: %w", err)
		}
	}

	for _, playlistID := range update.PlaylistsToDelete {
		if _, err := tx.Exec(ctx, `DELETE FROM playlists WHERE id = $1 AND setup_id = $2`, playlistID, id); err != nil {
			return fmt.Errorf("failed to delete playlist %d: %w", playlistID, err)
		}
	}

	for _, playlist := range update.PlaylistsToAdd {
		if err := insertPlaylist(ctx, tx, id, playlist); err != nil {
			return err
		}
	}

	for _, patch := range update.PlaylistsToUpdate {
		if err := applyPlaylistPatch(ctx, tx, id, patch); err != nil {
			return err
		}
	}

	for _, deviceID := range update.DevicesToAdd {
		if _, err := tx.Exec(ctx, `UPDATE devices SET setup_id = $1 WHERE id = $2`, id, deviceID); err != nil {
			return fmt.Errorf("failed to link device %d: %w", deviceID, err)
		}
	}

	for _, deviceID := range update.DevicesToRemove {
		if _, err := tx.Exec(ctx, `UPDATE devices SET setup_id = NULL WHERE id = $1 AND setup_id = $2`, deviceID, id); err != nil {
			return fmt.Errorf("failed to unlink device %d: %w", deviceID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit setup update: %w", err)
	}
	return nil
}

func applyPlaylistPatch(ctx context.Context, tx pgx.Tx, setupID int64, patch models.PlaylistPatch) error {
	query := `UPDATE playlists
	          SET name = $1, start_time = $2, end_time = $3,
	              monday = $4, tuesday = $5, wednesday = $6, thursday = $7,
	              friday = $8, saturday = $9, sunday = $10
	          WHERE id = $11 AND setup_id = $12`

	result, err := tx.Exec(ctx, query,
		patch.Name, patch.StartTime, patch.EndTime,
		patch.Monday, patch.Tuesday, patch.Wednesday, patch.Thursday,
		patch.Friday, patch.Saturday, patch.Sunday,
		patch.ID, setupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist %d: %w", patch.ID, err)
	}
	if result.RowsAffected() == 0 {
		// Playlist not part of this setup anymore; skip its media edits too.
		return nil
	}

	for _, imageID := range patch.ImagesToDelete {
		if _, err := tx.Exec(ctx, `DELETE FROM images WHERE id = $1 AND playlist_id = $2`, imageID, patch.ID); err != nil {
			return fmt.Errorf("failed to delete image %d: %w", imageID, err)
		}
	}
	for _, image := range patch.ImagesToAdd {
		if _, err := tx.Exec(ctx, `INSERT INTO images (playlist_id, url, duration) VALUES ($1, $2, $3)`,
			patch.ID, image.URL, image.Duration); err != nil {
			return fmt.Errorf("failed to add image: %w", err)
		}
	}
	for _, videoID := range patch.VideosToDelete {
		if _, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1 AND playlist_id = $2`, videoID, patch.ID); err != nil {
			return fmt.Errorf("failed to delete video %d: %w", videoID, err)
		}
	}
	for _, videoURL := range patch.VideosToAdd {
		if _, err := tx.Exec(ctx, `INSERT INTO videos (playlist_id, url) VALUES ($1, $2)`, patch.ID, videoURL); err != nil {
			return fmt.Errorf("failed to add video: %w", err)
		}
	}
	return nil
}

// Delete removes the setup; playlists and media go with it via ON DELETE
// CASCADE, linked devices fall back to no setup via ON DELETE SET NULL.
func (r *PostgresSetupRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM setups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete setup: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
