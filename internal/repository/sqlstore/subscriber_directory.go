package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
)

// SubscriberDirectory keeps subscriptions in the alert_subscriptions table.
// The geohash column is indexed so ScanRange is an index range scan.
type SubscriberDirectory struct {
	db *gorm.DB
}

func NewSubscriberDirectory(db *gorm.DB) *SubscriberDirectory {
	return &SubscriberDirectory{db: db}
}

func (d *SubscriberDirectory) Upsert(ctx context.Context, sub *entities.AlertSubscription) error {
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(newSubscriptionRow(sub)).Error
}

func (d *SubscriberDirectory) Get(ctx context.Context, subscriberID string) (*entities.AlertSubscription, error) {
	var row subscriptionRow
	err := d.db.WithContext(ctx).Where("subscriber_id = ?", subscriberID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.entity(), nil
}

func (d *SubscriberDirectory) ScanRange(ctx context.Context, low, high string) ([]*entities.AlertSubscription, error) {
	var rows []subscriptionRow
	err := d.db.WithContext(ctx).
		Where("geohash >= ? AND geohash <= ?", low, high).
		Order("geohash").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	subs := make([]*entities.AlertSubscription, len(rows))
	for i := range rows {
		subs[i] = rows[i].entity()
	}
	return subs, nil
}

func (d *SubscriberDirectory) All(ctx context.Context, pageSize int, fn func([]*entities.AlertSubscription) error) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	var rows []subscriptionRow
	// FindInBatches pages on the primary key, so pages come in subscriber order.
	return d.db.WithContext(ctx).
		FindInBatches(&rows, pageSize, func(tx *gorm.DB, batch int) error {
			page := make([]*entities.AlertSubscription, len(rows))
			for i := range rows {
				page[i] = rows[i].entity()
			}
			return fn(page)
		}).Error
}
