package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleStandard  Role = "standard"
	RoleOwner     Role = "owner"
	RoleGuarantor Role = "guarantor"
	RoleAdmin     Role = "admin"
)

// Account is created unverified at registration; verification flags flip
// when the matching identifier's code is consumed. Accounts are never
// hard-deleted here, only deactivated.
type Account struct {
	ID            string
	Email         *string
	Phone         *string
	Name          string
	Role          Role
	EmailVerified bool
	PhoneVerified bool
	Active        bool
	ReferralCode  string
	ReferredBy    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateAccountParams struct {
	Email        string
	Phone        string
	Name         string
	Role         Role
	ReferralCode string
	ReferredBy   *string
}

type AccountRepo interface {
	Create(ctx context.Context, p CreateAccountParams) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByPhone(ctx context.Context, phone string) (*Account, error)
	GetByReferralCode(ctx context.Context, code string) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	MarkEmailVerified(ctx context.Context, id string) error
	MarkPhoneVerified(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}
