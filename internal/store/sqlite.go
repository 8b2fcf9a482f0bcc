package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/corvidrecon/corvid/internal/asset"
)

// Column name constants, one block per table, following the
// internal/hmsds/query-shared-sq.go idiom of naming every column once and
// building queries off the constant rather than a repeated literal.
const (
	domainsTable = "domains"
	domainIDCol  = "id"
	domainValCol = "value"

	subdomainsTable = "subdomains"
	subdomainIDCol  = "id"
	subdomainDomCol = "domain_id"
	subdomainValCol = "value"

	ipaddrsTable = "ipaddrs"
	ipaddrIDCol  = "id"
	ipaddrFamCol = "family"
	ipaddrValCol = "value"

	linksTable = "subdomain_ipaddrs"
	linkIDCol  = "id"
	linkSubCol = "subdomain_id"
	linkIPCol  = "ip_addr_id"
)

// sqliteStore is the sole concrete Store implementation, backed by a
// single-file sqlite database at <data_dir>/<db_name>.db.
type sqliteStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	log logrus.FieldLogger
}

// Open connects to (creating if absent) the sqlite file at path and runs
// pending migrations, mirroring internal/pgmigrate.ApplyMigrations'
// connect-then-migrate shape with the postgres driver swapped for sqlite3.
func Open(ctx context.Context, path string, log logrus.FieldLogger) (Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, wrapErr("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapErr("ping", err)
	}

	if err := applyMigrations(db, log); err != nil {
		db.Close()
		return nil, wrapErr("migrate", err)
	}

	return &sqliteStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log: log.WithField("component", "store"),
	}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// newStoreFromDB builds a store over an already-open *sql.DB without
// running migrations, used by tests that inject a go-sqlmock connection.
func newStoreFromDB(db *sql.DB, log logrus.FieldLogger) *sqliteStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &sqliteStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log: log.WithField("component", "store"),
	}
}

// --- Domains -----------------------------------------------------------

func (s *sqliteStore) InsertDomain(ctx context.Context, value string) (int64, error) {
	res, err := s.sb.Insert(domainsTable).Columns(domainValCol).Values(value).
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return 0, wrapErr("insert_domain", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr("insert_domain", err)
	}
	return id, nil
}

func (s *sqliteStore) FindDomain(ctx context.Context, value string) (int64, bool, error) {
	var id int64
	err := s.sb.Select(domainIDCol).From(domainsTable).Where(sq.Eq{domainValCol: value}).
		RunWith(s.db).QueryRowContext(ctx).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapErr("find_domain", err)
	}
	return id, true, nil
}

func (s *sqliteStore) ListDomains(ctx context.Context) ([]asset.Domain, error) {
	rows, err := s.sb.Select(domainIDCol, domainValCol).From(domainsTable).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, wrapErr("list_domains", err)
	}
	defer rows.Close()

	var out []asset.Domain
	for rows.Next() {
		var d asset.Domain
		if err := rows.Scan(&d.ID, &d.Value); err != nil {
			return nil, wrapErr("list_domains", err)
		}
		out = append(out, d)
	}
	return out, wrapErr("list_domains", rows.Err())
}

func (s *sqliteStore) FilterDomains(ctx context.Context, f Filter) ([]asset.Domain, error) {
	q := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s", domainIDCol, domainValCol, domainsTable, f.Query())
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapErr("filter_domains", err)
	}
	defer rows.Close()

	var out []asset.Domain
	for rows.Next() {
		var d asset.Domain
		if err := rows.Scan(&d.ID, &d.Value); err != nil {
			return nil, wrapErr("filter_domains", err)
		}
		out = append(out, d)
	}
	return out, wrapErr("filter_domains", rows.Err())
}

// --- Subdomains ----------------------------------------------------------

// InsertSubdomain ensures the parent Domain exists (creating it if
// missing), then applies the idempotent subdomain insert.
func (s *sqliteStore) InsertSubdomain(ctx context.Context, value, domainValue string) (bool, int64, error) {
	domainID, ok, err := s.FindDomain(ctx, domainValue)
	if err != nil {
		return false, 0, err
	}
	if !ok {
		domainID, err = s.InsertDomain(ctx, domainValue)
		if err != nil {
			return false, 0, err
		}
	}

	return s.insertSubdomainByDomainID(ctx, value, domainID)
}

func (s *sqliteStore) insertSubdomainByDomainID(ctx context.Context, value string, domainID int64) (bool, int64, error) {
	if id, ok, err := s.findSubdomain(ctx, value); err != nil {
		return false, 0, err
	} else if ok {
		return false, id, nil
	}

	res, err := s.sb.Insert(subdomainsTable).Columns(subdomainDomCol, subdomainValCol).
		Values(domainID, value).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return false, 0, wrapErr("insert_subdomain", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, 0, wrapErr("insert_subdomain", err)
	}
	return true, id, nil
}

func (s *sqliteStore) findSubdomain(ctx context.Context, value string) (int64, bool, error) {
	var id int64
	err := s.sb.Select(subdomainIDCol).From(subdomainsTable).Where(sq.Eq{subdomainValCol: value}).
		RunWith(s.db).QueryRowContext(ctx).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapErr("find_subdomain", err)
	}
	return id, true, nil
}

func (s *sqliteStore) subdomainCols(fs FieldSet) []string {
	if fs == FieldIDOnly {
		return []string{subdomainIDCol}
	}
	return []string{subdomainIDCol, subdomainDomCol, subdomainValCol}
}

func (s *sqliteStore) ListSubdomains(ctx context.Context, fs FieldSet) ([]asset.Subdomain, error) {
	rows, err := s.sb.Select(s.subdomainCols(fs)...).From(subdomainsTable).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, wrapErr("list_subdomains", err)
	}
	defer rows.Close()
	return scanSubdomains(rows, fs)
}

func (s *sqliteStore) FilterSubdomains(ctx context.Context, f Filter, fs FieldSet) ([]asset.Subdomain, error) {
	cols := s.subdomainCols(fs)
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s", joinCols(cols), subdomainsTable, f.Query())
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapErr("filter_subdomains", err)
	}
	defer rows.Close()
	return scanSubdomains(rows, fs)
}

func scanSubdomains(rows *sql.Rows, fs FieldSet) ([]asset.Subdomain, error) {
	var out []asset.Subdomain
	for rows.Next() {
		var sd asset.Subdomain
		var err error
		if fs == FieldIDOnly {
			err = rows.Scan(&sd.ID)
		} else {
			err = rows.Scan(&sd.ID, &sd.DomainID, &sd.Value)
		}
		if err != nil {
			return nil, wrapErr("scan_subdomains", err)
		}
		out = append(out, sd)
	}
	return out, wrapErr("scan_subdomains", rows.Err())
}

// --- IP addresses --------------------------------------------------------

func (s *sqliteStore) InsertIpAddr(ctx context.Context, family, value string) (bool, int64, error) {
	if id, ok, err := s.findIpAddr(ctx, value); err != nil {
		return false, 0, err
	} else if ok {
		return false, id, nil
	}

	res, err := s.sb.Insert(ipaddrsTable).Columns(ipaddrFamCol, ipaddrValCol).
		Values(family, value).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return false, 0, wrapErr("insert_ipaddr", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, 0, wrapErr("insert_ipaddr", err)
	}
	return true, id, nil
}

func (s *sqliteStore) findIpAddr(ctx context.Context, value string) (int64, bool, error) {
	var id int64
	err := s.sb.Select(ipaddrIDCol).From(ipaddrsTable).Where(sq.Eq{ipaddrValCol: value}).
		RunWith(s.db).QueryRowContext(ctx).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapErr("find_ipaddr", err)
	}
	return id, true, nil
}

func (s *sqliteStore) ipaddrCols(fs FieldSet) []string {
	if fs == FieldIDOnly {
		return []string{ipaddrIDCol}
	}
	return []string{ipaddrIDCol, ipaddrFamCol, ipaddrValCol}
}

func (s *sqliteStore) ListIpAddrs(ctx context.Context, fs FieldSet) ([]asset.IpAddr, error) {
	rows, err := s.sb.Select(s.ipaddrCols(fs)...).From(ipaddrsTable).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, wrapErr("list_ipaddrs", err)
	}
	defer rows.Close()
	return scanIpAddrs(rows, fs)
}

func (s *sqliteStore) FilterIpAddrs(ctx context.Context, f Filter, fs FieldSet) ([]asset.IpAddr, error) {
	cols := s.ipaddrCols(fs)
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s", joinCols(cols), ipaddrsTable, f.Query())
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapErr("filter_ipaddrs", err)
	}
	defer rows.Close()
	return scanIpAddrs(rows, fs)
}

func scanIpAddrs(rows *sql.Rows, fs FieldSet) ([]asset.IpAddr, error) {
	var out []asset.IpAddr
	for rows.Next() {
		var ip asset.IpAddr
		var err error
		if fs == FieldIDOnly {
			err = rows.Scan(&ip.ID)
		} else {
			err = rows.Scan(&ip.ID, &ip.Family, &ip.Value)
		}
		if err != nil {
			return nil, wrapErr("scan_ipaddrs", err)
		}
		out = append(out, ip)
	}
	return out, wrapErr("scan_ipaddrs", rows.Err())
}

// --- Links -----------------------------------------------------------

func (s *sqliteStore) InsertLink(ctx context.Context, subdomainID, ipAddrID int64) (bool, int64, error) {
	if id, ok, err := s.findLink(ctx, subdomainID, ipAddrID); err != nil {
		return false, 0, err
	} else if ok {
		return false, id, nil
	}

	res, err := s.sb.Insert(linksTable).Columns(linkSubCol, linkIPCol).
		Values(subdomainID, ipAddrID).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return false, 0, wrapErr("insert_link", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, 0, wrapErr("insert_link", err)
	}
	return true, id, nil
}

func (s *sqliteStore) findLink(ctx context.Context, subdomainID, ipAddrID int64) (int64, bool, error) {
	var id int64
	err := s.sb.Select(linkIDCol).From(linksTable).
		Where(sq.Eq{linkSubCol: subdomainID, linkIPCol: ipAddrID}).
		RunWith(s.db).QueryRowContext(ctx).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapErr("find_link", err)
	}
	return id, true, nil
}

func (s *sqliteStore) ListLinks(ctx context.Context) ([]asset.SubdomainIpAddr, error) {
	rows, err := s.sb.Select(linkIDCol, linkSubCol, linkIPCol).From(linksTable).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, wrapErr("list_links", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func (s *sqliteStore) FilterLinks(ctx context.Context, f Filter) ([]asset.SubdomainIpAddr, error) {
	q := fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s", linkIDCol, linkSubCol, linkIPCol, linksTable, f.Query())
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapErr("filter_links", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]asset.SubdomainIpAddr, error) {
	var out []asset.SubdomainIpAddr
	for rows.Next() {
		var l asset.SubdomainIpAddr
		if err := rows.Scan(&l.ID, &l.SubdomainID, &l.IpAddrID); err != nil {
			return nil, wrapErr("scan_links", err)
		}
		out = append(out, l)
	}
	return out, wrapErr("scan_links", rows.Err())
}

// --- Object dispatch -----------------------------------------------------

// InsertObject dispatches over the Object variant. The Subdomain variant
// assumes DomainID is already resolved.
func (s *sqliteStore) InsertObject(ctx context.Context, obj asset.Object) (bool, int64, error) {
	if err := obj.Validate(); err != nil {
		return false, 0, err
	}

	switch obj.Kind {
	case asset.KindSubdomain:
		return s.insertSubdomainByDomainID(ctx, obj.Subdomain.Value, obj.Subdomain.DomainID)
	case asset.KindIpAddr:
		return s.InsertIpAddr(ctx, obj.IpAddr.Family, obj.IpAddr.Value)
	case asset.KindSubdomainIpAddr:
		return s.InsertLink(ctx, obj.SubdomainIpAddr.SubdomainID, obj.SubdomainIpAddr.IpAddrID)
	default:
		return false, 0, fmt.Errorf("store: unknown object kind %q", obj.Kind)
	}
}

func joinCols(cols []string) string {
	out := cols[0]
	for _, c := range cols[1:] {
		out += ", " + c
	}
	return out
}
