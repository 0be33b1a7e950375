package specification

import "gorm.io/gorm"

// ByRunStatus filters debug sessions by their stored run state.
type ByRunStatus struct {
	Status string
}

func (s ByRunStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
