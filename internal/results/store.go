package results

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksred/gmedchain-web/internal/gmedchain"
)

// ErrResultNotFound matches gorm.ErrRecordNotFound under errors.Is
var ErrResultNotFound = fmt.Errorf("result dialog: %w", gorm.ErrRecordNotFound)

// Record is a result dialog. It lives from the moment a command is sent
// until the user dismisses it or the sweeper drops it.
type Record struct {
	gorm.Model `json:"-"`
	ResultID   string    `gorm:"uniqueIndex" json:"result_id"`
	Command    string    `json:"command"`
	Pending    bool      `json:"pending"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Store keeps result dialogs between the request that sent a command and
// the page that shows its outcome
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open creates a pending result dialog for command
func (s *Store) Open(command string) (*Record, error) {
	rec := &Record{
		ResultID: uuid.New().String(),
		Command:  command,
		Pending:  true,
		OpenedAt: time.Now(),
	}
	if err := s.db.Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// Deliver fills a pending result dialog with the command outcome. It
// returns ErrResultNotFound if the dialog was already dismissed.
func (s *Store) Deliver(resultID string, msg gmedchain.Message) error {
	res := s.db.Model(&Record{}).
		Where("result_id = ?", resultID).
		Updates(map[string]interface{}{
			"pending":     false,
			"status_code": msg.StatusCode,
			"message":     msg.Data,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrResultNotFound
	}
	return nil
}

func (s *Store) Get(resultID string) (*Record, error) {
	var rec Record
	if err := s.db.Where("result_id = ?", resultID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Dismiss removes a result dialog. Dismissing twice is not an error.
func (s *Store) Dismiss(resultID string) error {
	return s.db.Unscoped().Where("result_id = ?", resultID).Delete(&Record{}).Error
}

// DeleteOpenedBefore removes result dialogs opened before cutoff and
// returns how many were dropped
func (s *Store) DeleteOpenedBefore(cutoff time.Time) (int64, error) {
	res := s.db.Unscoped().Where("opened_at < ?", cutoff).Delete(&Record{})
	return res.RowsAffected, res.Error
}
