// Package person はPerson管理のドメインロジックを提供する。
package person

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/personbook/internal/event"
	"github.com/hitoshi/personbook/internal/model"
	"github.com/hitoshi/personbook/internal/repository"
	"github.com/hitoshi/personbook/internal/security"
)

// ChangePublisher は変更通知の発行インターフェース。
// event.Broadcasterの部分集合として定義する。
type ChangePublisher interface {
	Publish(change event.Change)
}

// Service はPerson管理のサービス層。
// 検証・サニタイズ・永続化・変更通知の発行を担う。
type Service struct {
	repo      repository.PersonRepository
	sanitizer security.FieldSanitizerService
	publisher ChangePublisher
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.PersonRepository,
	sanitizer security.FieldSanitizerService,
	publisher ChangePublisher,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		publisher: publisher,
	}
}

// List は全Personを返す。
func (s *Service) List(ctx context.Context) ([]*model.Person, error) {
	persons, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	return persons, nil
}

// Get は指定IDのPersonを返す。存在しない場合はAPIError（not found）を返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Person, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find person: %w", err)
	}
	if p == nil {
		return nil, model.NewPersonNotFoundError()
	}
	return p, nil
}

// Create は新しいPersonを作成する。
// 検証に失敗した場合はValidationErrorを返す。
// 作成成功後にcreated通知を発行する（永続化前には発行しない）。
func (s *Service) Create(ctx context.Context, fields model.PersonFields) (*model.Person, error) {
	birthDate, ve := validateCreate(fields)
	if ve.HasErrors() {
		return nil, ve
	}

	// email一意性の事前チェック（INSERT時の一意インデックスが最終防衛線）
	taken, err := s.repo.EmailExists(ctx, *fields.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if taken {
		ve.Add("email", emailTakenMessage())
		return nil, ve
	}

	p := &model.Person{
		FirstName:  s.sanitizer.Sanitize(*fields.FirstName),
		LastName:   s.sanitizer.Sanitize(*fields.LastName),
		Email:      *fields.Email,
		BirthDate:  birthDate,
		Age:        s.sanitizeOptional(fields.Age.Value),
		Profession: s.sanitizeOptional(fields.Profession.Value),
		Address:    s.sanitizeOptional(fields.Address.Value),
		Phone:      s.sanitizeOptional(fields.Phone.Value),
		PhotoURL:   fields.PhotoURL.Value,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if repository.IsUniqueViolation(err) {
			// 事前チェックとINSERTの間で競合した場合
			ve.Add("email", emailTakenMessage())
			return nil, ve
		}
		return nil, fmt.Errorf("failed to create person: %w", err)
	}

	slog.Info("person created", slog.Int64("id", p.ID))
	s.publisher.Publish(event.Change{Entity: "person", Action: event.ActionCreated, ID: p.ID})

	return p, nil
}

// Update は指定IDのPersonを部分更新する。
// リクエストに含まれないフィールドは変更しない。
// email一意性チェックは更新対象自身のIDを除外して行う。
// 更新成功後にupdated通知を発行する。
func (s *Service) Update(ctx context.Context, id int64, fields model.PersonFields) (*model.Person, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find person: %w", err)
	}
	if p == nil {
		return nil, model.NewPersonNotFoundError()
	}

	birthDate, ve := validateUpdate(fields)
	if ve.HasErrors() {
		return nil, ve
	}

	if fields.Email != nil && *fields.Email != p.Email {
		taken, err := s.repo.EmailExists(ctx, *fields.Email, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if taken {
			ve.Add("email", emailTakenMessage())
			return nil, ve
		}
	}

	// 部分更新: リクエストに含まれたフィールドのみ既存値を置き換える。
	// nullableフィールドはnull明示でnilに戻せる。
	if fields.FirstName != nil {
		p.FirstName = s.sanitizer.Sanitize(*fields.FirstName)
	}
	if fields.LastName != nil {
		p.LastName = s.sanitizer.Sanitize(*fields.LastName)
	}
	if fields.Email != nil {
		p.Email = *fields.Email
	}
	if fields.BirthDate.Present {
		p.BirthDate = birthDate
	}
	if fields.Age.Present {
		p.Age = s.sanitizeOptional(fields.Age.Value)
	}
	if fields.Profession.Present {
		p.Profession = s.sanitizeOptional(fields.Profession.Value)
	}
	if fields.Address.Present {
		p.Address = s.sanitizeOptional(fields.Address.Value)
	}
	if fields.Phone.Present {
		p.Phone = s.sanitizeOptional(fields.Phone.Value)
	}
	if fields.PhotoURL.Present {
		p.PhotoURL = fields.PhotoURL.Value
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if repository.IsUniqueViolation(err) {
			ve.Add("email", emailTakenMessage())
			return nil, ve
		}
		return nil, fmt.Errorf("failed to update person: %w", err)
	}

	slog.Info("person updated", slog.Int64("id", p.ID))
	s.publisher.Publish(event.Change{Entity: "person", Action: event.ActionUpdated, ID: p.ID})

	return p, nil
}

// Delete は指定IDのPersonを削除する。存在しない場合はAPIError（not found）を返す。
// 削除成功後にdeleted通知を発行する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find person: %w", err)
	}
	if p == nil {
		return model.NewPersonNotFoundError()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}

	slog.Info("person deleted", slog.Int64("id", id))
	s.publisher.Publish(event.Change{Entity: "person", Action: event.ActionDeleted, ID: id})

	return nil
}

// sanitizeOptional はnullableフィールドをサニタイズする。nilはnilのまま返す。
func (s *Service) sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.sanitizer.Sanitize(*value)
	return &cleaned
}
