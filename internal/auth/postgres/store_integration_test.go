// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/knpvt5/auth/internal/auth"
	"github.com/knpvt5/auth/internal/auth/postgres"
	"github.com/knpvt5/auth/internal/store"
)

func newRecord(email string) auth.User {
	now := auth.Timestamp(time.Now())
	return auth.User{
		ID:           ulid.Make(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: "$2a$04$placeholder",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var _ = Describe("Store", Ordered, func() {
	var (
		ctx       context.Context
		container *tcpostgres.PostgresContainer
		pool      *pgxpool.Pool
		s         *postgres.Store
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("authd_test"),
			tcpostgres.WithUsername("authd"),
			tcpostgres.WithPassword("authd"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, connStr, nil)
		Expect(err).NotTo(HaveOccurred())
		s = postgres.NewStore(pool)
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	BeforeEach(func() {
		Expect(s.ReplaceAll(ctx, nil)).To(Succeed())
	})

	It("starts empty", func() {
		users, err := s.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(BeEmpty())
	})

	It("round trips the full set", func() {
		ada := newRecord("ada@example.com")
		grace := newRecord("grace@example.com")
		Expect(s.ReplaceAll(ctx, []auth.User{ada, grace})).To(Succeed())

		users, err := s.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(2))
		Expect(users[0].ID).To(Equal(ada.ID))
		Expect(users[0].CreatedAt.Equal(ada.CreatedAt)).To(BeTrue())
		Expect(users[1].Email).To(Equal("grace@example.com"))
	})

	It("removes records missing from the new set", func() {
		ada := newRecord("ada@example.com")
		grace := newRecord("grace@example.com")
		Expect(s.ReplaceAll(ctx, []auth.User{ada, grace})).To(Succeed())
		Expect(s.ReplaceAll(ctx, []auth.User{grace})).To(Succeed())

		users, err := s.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
		Expect(users[0].ID).To(Equal(grace.ID))
	})

	It("updates existing rows in place", func() {
		ada := newRecord("ada@example.com")
		Expect(s.ReplaceAll(ctx, []auth.User{ada})).To(Succeed())

		ada.PasswordHash = "$2a$04$rotated"
		ada.UpdatedAt = ada.UpdatedAt.Add(time.Second)
		Expect(s.ReplaceAll(ctx, []auth.User{ada})).To(Succeed())

		users, err := s.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
		Expect(users[0].PasswordHash).To(Equal("$2a$04$rotated"))
		Expect(users[0].UpdatedAt.Equal(ada.UpdatedAt)).To(BeTrue())
	})

	It("enforces email uniqueness and keeps the previous set", func() {
		ada := newRecord("ada@example.com")
		Expect(s.ReplaceAll(ctx, []auth.User{ada})).To(Succeed())

		dup := newRecord("ADA@example.com")
		err := s.ReplaceAll(ctx, []auth.User{ada, dup})
		Expect(err).To(HaveOccurred())
		Expect(auth.IsCode(err, auth.CodeEmailTaken)).To(BeTrue())

		users, err := s.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
		Expect(users[0].ID).To(Equal(ada.ID))
	})
})
