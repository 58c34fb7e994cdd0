package service

import (
	"context"

	"go.uber.org/zap"

	"peerbridge/internal/dto"
	"peerbridge/internal/model"
	"peerbridge/internal/repository"
	pkgerrors "peerbridge/pkg/errors"
)

// CatalogService departments and courses, read-only
type CatalogService interface {
	ListDepartments(ctx context.Context) ([]dto.DepartmentResponse, error)
	ListCourses(ctx context.Context, departmentID *int64) ([]dto.CourseResponse, error)
	ListTutorCourses(ctx context.Context, tutorID int64) ([]dto.CourseResponse, error)
	ListTuteeCourses(ctx context.Context, tuteeID int64) ([]dto.CourseResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) ListDepartments(ctx context.Context) ([]dto.DepartmentResponse, error) {
	depts, err := s.repo.Department.List(ctx)
	if err != nil {
		s.logger.Error("list departments failed", zap.Error(err))
		return nil, pkgerrors.NewStoreError("list departments", err)
	}
	list := make([]dto.DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		list = append(list, dto.DepartmentResponse{ID: d.ID, Name: d.Name})
	}
	return list, nil
}

func (s *catalogService) ListCourses(ctx context.Context, departmentID *int64) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.List(ctx, departmentID)
	if err != nil {
		s.logger.Error("list courses failed", zap.Error(err))
		return nil, pkgerrors.NewStoreError("list courses", err)
	}
	return toCourseResponses(courses), nil
}

func (s *catalogService) ListTutorCourses(ctx context.Context, tutorID int64) ([]dto.CourseResponse, error) {
	if err := requireRole(ctx, s.repo, tutorID, model.RoleTutor); err != nil {
		return nil, err
	}
	courses, err := s.repo.Course.ListByTutor(ctx, tutorID)
	if err != nil {
		s.logger.Error("list tutor courses failed", zap.Int64("tutor_id", tutorID), zap.Error(err))
		return nil, pkgerrors.NewStoreError("list tutor courses", err)
	}
	return toCourseResponses(courses), nil
}

func (s *catalogService) ListTuteeCourses(ctx context.Context, tuteeID int64) ([]dto.CourseResponse, error) {
	if err := requireRole(ctx, s.repo, tuteeID, model.RoleTutee); err != nil {
		return nil, err
	}
	courses, err := s.repo.Course.ListByTutee(ctx, tuteeID)
	if err != nil {
		s.logger.Error("list tutee courses failed", zap.Int64("tutee_id", tuteeID), zap.Error(err))
		return nil, pkgerrors.NewStoreError("list tutee courses", err)
	}
	return toCourseResponses(courses), nil
}

func toCourseResponses(courses []model.Course) []dto.CourseResponse {
	list := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		list = append(list, toCourseResponse(&courses[i]))
	}
	return list
}
