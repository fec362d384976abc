// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/knpvt5/auth/internal/auth"
	"github.com/knpvt5/auth/internal/auth/postgres"
	"github.com/knpvt5/auth/internal/httpapi"
	"github.com/knpvt5/auth/internal/store"
)

// apiResponse mirrors the HTTP envelope.
type apiResponse struct {
	StatusCode int             `json:"statusCode"`
	IsSuccess  bool            `json:"IsSuccess"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &client{base: base, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (c *client) do(method, path string, body any) (int, apiResponse) {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req, err := http.NewRequestWithContext(context.Background(), method, c.base+path, &buf)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close() //nolint:errcheck // test client

	var out apiResponse
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp.StatusCode, out
}

var _ = Describe("Account API on PostgreSQL", Ordered, func() {
	var (
		ctx       context.Context
		container *tcpostgres.PostgresContainer
		pool      *pgxpool.Pool
		server    *httpapi.Server
		base      string
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

		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		tokens, err := auth.NewTokenService([]byte("integration-secret"), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		accounts, err := auth.NewAccountService(postgres.NewStore(pool), hasher, tokens)
		Expect(err).NotTo(HaveOccurred())

		handler := httpapi.NewHandler(accounts, httpapi.Options{EmailLookup: true})
		server = httpapi.NewServer("127.0.0.1:0", handler.Router(), nil)
		_, err = server.Start()
		Expect(err).NotTo(HaveOccurred())
		base = "http://" + server.Addr()
	})

	AfterAll(func() {
		if server != nil {
			Expect(server.Stop(ctx)).To(Succeed())
		}
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	It("registers, logs in, reads the session and logs out", func() {
		c := newClient(base)

		status, resp := c.do(http.MethodPost, "/auth/register", map[string]string{
			"firstName": "Ada", "lastName": "Lovelace", "email": "Ada@Example.com ", "password": "first",
		})
		Expect(status).To(Equal(http.StatusCreated))
		Expect(resp.IsSuccess).To(BeTrue())
		Expect(string(resp.Data)).NotTo(ContainSubstring("passwordHash"))

		status, resp = c.do(http.MethodPost, "/auth/login", map[string]string{
			"email": "ada@example.com", "password": "first",
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(resp.Message).To(Equal("Login successful"))

		status, resp = c.do(http.MethodGet, "/auth/user-data", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(resp.Data)).To(ContainSubstring(`"email":"ada@example.com"`))

		status, _ = c.do(http.MethodPost, "/auth/logout", nil)
		Expect(status).To(Equal(http.StatusOK))

		status, resp = c.do(http.MethodGet, "/auth/user-data", nil)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(resp.Message).To(Equal("Access token is required"))
	})

	It("rejects a duplicate email regardless of case", func() {
		c := newClient(base)
		body := map[string]string{"firstName": "Grace", "email": "grace@example.com", "password": "pw"}

		status, _ := c.do(http.MethodPost, "/auth/register", body)
		Expect(status).To(Equal(http.StatusCreated))

		body["email"] = " GRACE@example.com"
		status, resp := c.do(http.MethodPost, "/auth/register", body)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(resp.Message).To(Equal("Email already registered"))
	})

	It("does not reveal whether an email exists on login", func() {
		c := newClient(base)
		status, _ := c.do(http.MethodPost, "/auth/register", map[string]string{
			"firstName": "Linus", "email": "linus@example.com", "password": "right",
		})
		Expect(status).To(Equal(http.StatusCreated))

		wrongStatus, wrong := c.do(http.MethodPost, "/auth/login", map[string]string{
			"email": "linus@example.com", "password": "wrong",
		})
		unknownStatus, unknown := c.do(http.MethodPost, "/auth/login", map[string]string{
			"email": "nobody@example.com", "password": "wrong",
		})
		Expect(wrongStatus).To(Equal(unknownStatus))
		Expect(wrong.Message).To(Equal(unknown.Message))
	})

	It("resets a password", func() {
		c := newClient(base)
		status, _ := c.do(http.MethodPost, "/auth/register", map[string]string{
			"firstName": "Barbara", "email": "barbara@example.com", "password": "old",
		})
		Expect(status).To(Equal(http.StatusCreated))

		status, _ = c.do(http.MethodPost, "/auth/reset-password", map[string]string{
			"email": "barbara@example.com", "newPassword": "new",
		})
		Expect(status).To(Equal(http.StatusOK))

		status, _ = c.do(http.MethodPost, "/auth/login", map[string]string{"email": "barbara@example.com", "password": "old"})
		Expect(status).To(Equal(http.StatusUnauthorized))
		status, _ = c.do(http.MethodPost, "/auth/login", map[string]string{"email": "barbara@example.com", "password": "new"})
		Expect(status).To(Equal(http.StatusOK))
	})

	It("admits exactly one of many concurrent registrations for an email", func() {
		const workers = 10
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			statuses = map[int]int{}
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				status, _ := newClient(base).do(http.MethodPost, "/auth/register", map[string]string{
					"firstName": fmt.Sprintf("racer-%d", i), "email": "race@example.com", "password": "pw",
				})
				mu.Lock()
				statuses[status]++
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		Expect(statuses[http.StatusCreated]).To(Equal(1))
		Expect(statuses[http.StatusConflict]).To(Equal(workers - 1))

		var count int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = $1`, "race@example.com").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})
})
