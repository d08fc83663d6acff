package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sifan077/QRHub/internal/app/model"
	"github.com/sifan077/QRHub/internal/app/repository"
	"go.uber.org/zap"
)

// legacyRow is one record of the previous storage layout, where the
// presentation flag was an integer column named is_wechat.
type legacyRow struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	CreatedAt  int64   `json:"created_at"`
	ExpiresAt  *int64  `json:"expires_at"`
	IsWechat   int     `json:"is_wechat"`
	WechatData *string `json:"wechat_data"`
	CustomData *string `json:"custom_data"`
}

func (r legacyRow) mapping() model.Mapping {
	return model.Mapping{
		ID:               r.ID,
		URL:              r.URL,
		CreatedAt:        r.CreatedAt,
		ExpiresAt:        r.ExpiresAt,
		IsPresentation:   r.IsWechat != 0,
		PresentationData: r.WechatData,
		CustomData:       r.CustomData,
	}
}

type importStats struct {
	Imported int
	Skipped  int
}

func decodeLegacyRows(r io.Reader) ([]legacyRow, error) {
	var rows []legacyRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode legacy rows: %w", err)
	}
	for i, row := range rows {
		if row.ID == "" || row.URL == "" {
			return nil, fmt.Errorf("row %d: id and url are required", i)
		}
	}
	return rows, nil
}

// importRows inserts rows in order. Ids that already exist are skipped; any
// other failure stops the import.
func importRows(ctx context.Context, repo repository.MappingRepository, rows []legacyRow, log *zap.Logger) (importStats, error) {
	var stats importStats
	for _, row := range rows {
		m := row.mapping()
		if err := repo.Create(ctx, &m); err != nil {
			if errors.Is(err, repository.ErrMappingExists) {
				stats.Skipped++
				log.Warn("mapping already exists, skipping", zap.String("id", row.ID))
				continue
			}
			return stats, fmt.Errorf("import %s: %w", row.ID, err)
		}
		stats.Imported++
		log.Debug("mapping imported", zap.String("id", row.ID))
	}
	return stats, nil
}
