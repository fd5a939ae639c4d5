package storage

import (
	"context"
	"fmt"

	"roomchat/backend/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPersister stores the working set in PostgreSQL.
type GormPersister struct {
	DB *gorm.DB
}

func NewGormPersister(db *gorm.DB) *GormPersister {
	return &GormPersister{DB: db}
}

// Migrate creates or updates every chat table.
func (p *GormPersister) Migrate() error {
	return p.DB.AutoMigrate(
		&models.ChatUser{},
		&models.ChatRoom{},
		&models.RoomMembership{},
		&models.ChatMessage{},
	)
}

// Load reads users, rooms, memberships and the latest historyLimit messages per room.
func (p *GormPersister) Load(ctx context.Context, historyLimit int) (*Snapshot, error) {
	db := p.DB.WithContext(ctx)
	snap := &Snapshot{}

	if err := db.Find(&snap.Users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	if err := db.Find(&snap.Rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	if err := db.Find(&snap.Memberships).Error; err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}

	for _, room := range snap.Rooms {
		var msgs []*models.ChatMessage
		err := db.Where("room_id = ?", room.ID).
			Order("sent_at DESC").
			Limit(historyLimit).
			Find(&msgs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load history of %s: %w", room.Name, err)
		}
		snap.Messages = append(snap.Messages, msgs...)
	}
	return snap, nil
}

// Flush writes the batch in a single transaction. Room relations are
// replaced wholesale for every dirty room.
func (p *GormPersister) Flush(ctx context.Context, batch Batch) error {
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range batch.Users {
			if err := tx.Save(u).Error; err != nil {
				return fmt.Errorf("failed to save user %s: %w", u.ID, err)
			}
		}

		for _, r := range batch.Rooms {
			if err := tx.Save(r).Error; err != nil {
				return fmt.Errorf("failed to save room %s: %w", r.ID, err)
			}
			if err := tx.Where("room_id = ?", r.ID).Delete(&models.RoomMembership{}).Error; err != nil {
				return fmt.Errorf("failed to clear memberships of %s: %w", r.ID, err)
			}
			rows := r.Memberships()
			if len(rows) == 0 {
				continue
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to save memberships of %s: %w", r.ID, err)
			}
		}

		if len(batch.Messages) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"content", "links"}),
			}).Create(&batch.Messages).Error
			if err != nil {
				ids := lo.Map(batch.Messages, func(m *models.ChatMessage, _ int) string { return m.ID })
				return fmt.Errorf("failed to save messages %v: %w", ids, err)
			}
		}
		return nil
	})
}

// RoomSummary is one row of the admin room listing.
type RoomSummary struct {
	Name    string
	Private bool
	Closed  bool
	Members int64
}

// ListRoomSummaries counts members per room directly in the database.
func (p *GormPersister) ListRoomSummaries(ctx context.Context) ([]RoomSummary, error) {
	var rows []RoomSummary
	err := p.DB.WithContext(ctx).
		Model(&models.ChatRoom{}).
		Select("chat_rooms.name, chat_rooms.private, chat_rooms.closed, COUNT(room_memberships.user_id) AS members").
		Joins("LEFT JOIN room_memberships ON room_memberships.room_id = chat_rooms.id AND room_memberships.role = ?", models.RoleMember).
		Group("chat_rooms.id").
		Order("chat_rooms.name_key").
		Scan(&rows).Error
	return rows, err
}

// SetRoomClosed flips the closed flag of a room by name.
func (p *GormPersister) SetRoomClosed(ctx context.Context, name string, closed bool) error {
	res := p.DB.WithContext(ctx).
		Model(&models.ChatRoom{}).
		Where("name_key = ?", models.NormalizeName(name)).
		Update("closed", closed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UserSummary is one row of the admin user listing.
type UserSummary struct {
	Name   string
	Status models.UserStatus
	Rooms  int64
}

// ListUserSummaries counts joined rooms per user directly in the database.
func (p *GormPersister) ListUserSummaries(ctx context.Context) ([]UserSummary, error) {
	var rows []UserSummary
	err := p.DB.WithContext(ctx).
		Model(&models.ChatUser{}).
		Select("chat_users.name, chat_users.status, COUNT(room_memberships.room_id) AS rooms").
		Joins("LEFT JOIN room_memberships ON room_memberships.user_id = chat_users.id AND room_memberships.role = ?", models.RoleMember).
		Group("chat_users.id").
		Order("chat_users.name_key").
		Scan(&rows).Error
	return rows, err
}
