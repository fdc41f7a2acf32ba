package service

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func notFound(kind, id string) error {
	return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id))
}

func forbidden(message string) error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

func newID() string { return uuid.NewString() }

func now() time.Time { return time.Now().UTC() }
