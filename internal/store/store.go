package store

import (
	"errors"

	"gorm.io/gorm"

	"whatsapp-console/internal/models"
)

// GormStore implements the dispatch engine's Store contract on top of GORM.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) LoadCampaign(id string) (*models.Campaign, error) {
	var c models.Campaign
	if err := s.DB.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) SaveCampaign(c *models.Campaign) error {
	return s.DB.Save(c).Error
}

func (s *GormStore) LoadSessions(ids []string) ([]*models.Session, error) {
	var sessions []*models.Session
	if len(ids) == 0 {
		return sessions, nil
	}
	if err := s.DB.Find(&sessions, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *GormStore) SaveSession(sess *models.Session) error {
	return s.DB.Save(sess).Error
}

// LoadTemplates returns the referenced templates in the order the IDs were
// given, so template rotation follows the campaign's assignment order.
func (s *GormStore) LoadTemplates(ids []string) ([]*models.Template, error) {
	var templates []*models.Template
	if len(ids) == 0 {
		return templates, nil
	}
	if err := s.DB.Find(&templates, "id IN ?", ids).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	ordered := make([]*models.Template, 0, len(templates))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

func (s *GormStore) SaveRecord(rec *models.DispatchRecord) error {
	return s.DB.Save(rec).Error
}

// FindRecordByMessageID looks up the dispatch record a gateway status ack
// refers to. Unknown message IDs yield (nil, nil).
func (s *GormStore) FindRecordByMessageID(gatewayMessageID string) (*models.DispatchRecord, error) {
	if gatewayMessageID == "" {
		return nil, nil
	}
	var rec models.DispatchRecord
	err := s.DB.First(&rec, "gateway_message_id = ?", gatewayMessageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
