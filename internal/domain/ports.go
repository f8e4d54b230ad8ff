package domain

import "context"

// DishRepository is the record store: the relational copy of the
// catalog's core fields. Extra keys are not its problem.
type DishRepository interface {
	ListDishes(ctx context.Context) ([]Dish, error)
	GetDish(ctx context.Context, id string) (Dish, error)
	UpsertDish(ctx context.Context, d Dish) error
	DeleteDish(ctx context.Context, id string) (bool, error)
	DeleteAllDishes(ctx context.Context) error
	CountDishes(ctx context.Context) (int, error)
	Menus(ctx context.Context) ([]string, error)
	Sections(ctx context.Context, menu string) ([]string, error)
}

type UserRepository interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id int64) (bool, error)
	CountUsers(ctx context.Context) (int, error)
}

type FeedbackRepository interface {
	ListFeedback(ctx context.Context) ([]FeedbackMessage, error)
	CreateFeedback(ctx context.Context, m FeedbackMessage) (FeedbackMessage, error)
	MarkFeedbackRead(ctx context.Context, id int64) (FeedbackMessage, error)
	DeleteFeedback(ctx context.Context, id int64) (bool, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Notifier pushes a new feedback message to the staff channel.
type Notifier interface {
	NotifyFeedback(ctx context.Context, m FeedbackMessage) error
}
