package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/corvidrecon/corvid/internal/asset"
)

func newMockStore(t *testing.T) (*sqliteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return newStoreFromDB(db, nil), mock
}

// TestInsertDomainThenFind covers inserting a domain and then finding it
// by value.
func TestInsertDomainThenFind(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO domains (value) VALUES (?)")).
		WithArgs("example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := s.InsertDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("InsertDomain: %v", err)
	}
	if id != 1 {
		t.Fatalf("want id 1, got %d", id)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM domains WHERE value = ?")).
		WithArgs("example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	gotID, ok, err := s.FindDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("FindDomain: %v", err)
	}
	if !ok || gotID != 1 {
		t.Fatalf("want (1,true), got (%d,%v)", gotID, ok)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM domains WHERE value = ?")).
		WithArgs("missing.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, ok, err = s.FindDomain(ctx, "missing.com")
	if err != nil {
		t.Fatalf("FindDomain: %v", err)
	}
	if ok {
		t.Fatal("expected not-found for missing.com")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestInsertSubdomainIdempotent covers S2: idempotent insert returns
// (true, id) then (false, id) for a repeat.
func TestInsertSubdomainIdempotent(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	// First call: domain doesn't exist yet, gets created, subdomain doesn't
	// exist yet either.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM domains WHERE value = ?")).
		WithArgs("example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO domains (value) VALUES (?)")).
		WithArgs("example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subdomains WHERE value = ?")).
		WithArgs("www.example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subdomains (domain_id,value) VALUES (?,?)")).
		WithArgs(int64(1), "www.example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))

	wasNew, id, err := s.InsertSubdomain(ctx, "www.example.com", "example.com")
	if err != nil {
		t.Fatalf("InsertSubdomain: %v", err)
	}
	if !wasNew || id != 1 {
		t.Fatalf("want (true,1), got (%v,%d)", wasNew, id)
	}

	// Second call: domain now exists, subdomain now exists.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM domains WHERE value = ?")).
		WithArgs("example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subdomains WHERE value = ?")).
		WithArgs("www.example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	wasNew, id, err = s.InsertSubdomain(ctx, "www.example.com", "example.com")
	if err != nil {
		t.Fatalf("InsertSubdomain (repeat): %v", err)
	}
	if wasNew || id != 1 {
		t.Fatalf("want (false,1), got (%v,%d)", wasNew, id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestInsertLinkIdempotent covers S3.
func TestInsertLinkIdempotent(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subdomain_ipaddrs WHERE ip_addr_id = ? AND subdomain_id = ?")).
		WithArgs(int64(1), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subdomain_ipaddrs (subdomain_id,ip_addr_id) VALUES (?,?)")).
		WithArgs(int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	wasNew, id, err := s.InsertLink(ctx, 1, 1)
	if err != nil {
		t.Fatalf("InsertLink: %v", err)
	}
	if !wasNew || id != 1 {
		t.Fatalf("want (true,1), got (%v,%d)", wasNew, id)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subdomain_ipaddrs WHERE ip_addr_id = ? AND subdomain_id = ?")).
		WithArgs(int64(1), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	wasNew, id, err = s.InsertLink(ctx, 1, 1)
	if err != nil {
		t.Fatalf("InsertLink (repeat): %v", err)
	}
	if wasNew || id != 1 {
		t.Fatalf("want (false,1), got (%v,%d)", wasNew, id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertObjectRejectsBadShape(t *testing.T) {
	s, _ := newMockStore(t)
	ctx := context.Background()

	_, _, err := s.InsertObject(ctx, asset.Object{
		Kind:   asset.KindIpAddr,
		IpAddr: &asset.IpAddrObject{Family: "7", Value: "1.2.3.4"},
	})
	if err == nil {
		t.Fatal("expected validation error for bad family")
	}
}
