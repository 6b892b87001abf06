package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "database/sql"
    "net/http" // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Healthz is a liveness probe for load balancers.  It returns a plain text
// "ok" with an HTTP 200 status code and touches no dependency.
func Healthz(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Health returns a readiness handler that pings the database.  A failed ping
// answers 503 so orchestrators stop routing traffic here.
func Health(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "fail", "db": false, "error": err.Error()})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "db": true, "timestamp": time.Now().UTC()})
    }
}
