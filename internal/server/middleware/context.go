package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/docustitch/backend/internal/storage"
)

// AppUser is the authenticated caller.
type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// App bundles the shared dependencies every handler needs.
type App struct {
	DBConn       *pgxpool.Pool
	Store        *storage.Store
	Queue        *amqp091.Channel
	Key          *keyfunc.Keyfunc
	MasterAPIKey string
}

// AppContext wraps the echo context with the app and the resolved user.
type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// AppContextMiddleware attaches the shared App to every request.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
