package service

import (
	"context"

	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/internal/untis"
)

// Gateway is the authenticated connection to the timetable service.
// *untis.Client implements it.
type Gateway interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Departments(ctx context.Context) ([]models.Entity, error)
	Subjects(ctx context.Context) ([]models.Entity, error)
	Rooms(ctx context.Context) ([]models.Entity, error)
	SchoolYears(ctx context.Context) ([]models.Entity, error)
	Groups(ctx context.Context) ([]models.Entity, error)
	Teachers(ctx context.Context) ([]models.Teacher, error)
	TeacherByName(ctx context.Context, surname, forename string) (models.Teacher, error)
	Timetable(ctx context.Context, q models.TimetableQuery) ([]models.Period, error)
}

// GatewayFactory opens a (not yet authenticated) gateway for creds.
type GatewayFactory func(creds untis.Credentials) (Gateway, error)

// UntisGatewayFactory builds gateways backed by the WebUntis JSON-RPC client.
func UntisGatewayFactory(opts ...untis.Option) GatewayFactory {
	return func(creds untis.Credentials) (Gateway, error) {
		return untis.New(creds, opts...)
	}
}

type sessionProvider interface {
	Require() (Gateway, error)
}
