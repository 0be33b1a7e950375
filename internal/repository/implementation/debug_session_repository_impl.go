package implementation

import (
	"context"
	"errors"

	"draco-chat-be/internal/entity"
	"draco-chat-be/internal/mapper"
	"draco-chat-be/internal/model"
	"draco-chat-be/internal/repository/contract"
	"draco-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DebugSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DebugMapper
}

func NewDebugSessionRepository(db *gorm.DB) contract.DebugSessionRepository {
	return &DebugSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewDebugMapper(),
	}
}

func (r *DebugSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DebugSessionRepositoryImpl) Create(ctx context.Context, session *entity.DebugSession) error {
	m, err := r.mapper.DebugSessionToModel(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	e, err := r.mapper.DebugSessionToEntity(m)
	if err != nil {
		return err
	}
	*session = *e
	return nil
}

func (r *DebugSessionRepositoryImpl) Update(ctx context.Context, session *entity.DebugSession) error {
	m, err := r.mapper.DebugSessionToModel(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	e, err := r.mapper.DebugSessionToEntity(m)
	if err != nil {
		return err
	}
	*session = *e
	return nil
}

func (r *DebugSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.DebugSession{}, id).Error
}

func (r *DebugSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DebugSession, error) {
	var m model.DebugSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DebugSessionToEntity(&m)
}

func (r *DebugSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DebugSession, error) {
	var models []*model.DebugSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.DebugSession, len(models))
	for i, m := range models {
		e, err := r.mapper.DebugSessionToEntity(m)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}

func (r *DebugSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.DebugSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
