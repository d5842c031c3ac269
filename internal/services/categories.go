package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// DefaultCategories are created for every new user.
var DefaultCategories = []core.Category{
	{Name: "Salary", Type: core.Income, Color: "#10B981", Icon: "briefcase"},
	{Name: "Freelance", Type: core.Income, Color: "#3B82F6", Icon: "code"},
	{Name: "Investments", Type: core.Income, Color: "#8B5CF6", Icon: "trending-up"},
	{Name: "Other Income", Type: core.Income, Color: "#6B7280", Icon: "dollar-sign"},

	{Name: "Food", Type: core.Expense, Color: "#EF4444", Icon: "shopping-cart"},
	{Name: "Transport", Type: core.Expense, Color: "#F59E0B", Icon: "car"},
	{Name: "Housing", Type: core.Expense, Color: "#8B5CF6", Icon: "home"},
	{Name: "Health", Type: core.Expense, Color: "#EC4899", Icon: "heart"},
	{Name: "Education", Type: core.Expense, Color: "#3B82F6", Icon: "book"},
	{Name: "Leisure", Type: core.Expense, Color: "#10B981", Icon: "smile"},
	{Name: "Bills", Type: core.Expense, Color: "#6B7280", Icon: "file-text"},
	{Name: "Other Expenses", Type: core.Expense, Color: "#6B7280", Icon: "more-horizontal"},
}

type CategoryService struct {
	repo   *storage.SQLiteRepository
	logger *applog.Logger
}

func NewCategoryService(repo *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{repo: repo, logger: applog.Default(applog.ComponentCategory)}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.Color == "" {
		c.Color = "#6B7280"
	}
	if c.Icon == "" {
		c.Icon = "tag"
	}
	if err := s.repo.Queries().CreateCategory(ctx, &c); err != nil {
		return core.Category{}, err
	}
	s.logger.InfoContext(ctx, "Category created", applog.FieldUserID, c.UserID, applog.FieldEntityID, c.ID)
	return c, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.repo.Queries().GetCategory(ctx, userID, id)
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.repo.Queries().ListCategories(ctx, userID)
}

func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	var out core.Category
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		cur, err := q.GetCategory(ctx, c.UserID, c.ID)
		if err != nil {
			return err
		}
		cur.Name, cur.Type, cur.Color, cur.Icon = c.Name, c.Type, c.Color, c.Icon
		if err := q.UpdateCategory(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return out, nil
}

// CreateDefaults adds the default categories to the user's set.
func (s *CategoryService) CreateDefaults(ctx context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		out, err = createDefaultCategories(ctx, q, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Default categories created", applog.FieldUserID, userID, applog.FieldCount, len(out))
	return out, nil
}

func createDefaultCategories(ctx context.Context, q *storage.Queries, userID int64) ([]core.Category, error) {
	out := make([]core.Category, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		c.UserID = userID
		if err := q.CreateCategory(ctx, &c); err != nil {
			return nil, fmt.Errorf("create default category %q: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// UserService registers users. Authentication lives outside this module.
type UserService struct {
	repo   *storage.SQLiteRepository
	logger *applog.Logger
}

func NewUserService(repo *storage.SQLiteRepository) *UserService {
	return &UserService{repo: repo, logger: applog.Default(applog.ComponentApp)}
}

// Create inserts the user together with the default categories.
func (s *UserService) Create(ctx context.Context, username, email string) (int64, error) {
	if username == "" {
		return 0, &core.ValidationError{Field: "username", Err: core.ErrEmptyName}
	}
	var id int64
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if id, err = q.CreateUser(ctx, username, email); err != nil {
			return err
		}
		_, err = createDefaultCategories(ctx, q, id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User created", applog.FieldUserID, id)
	return id, nil
}
