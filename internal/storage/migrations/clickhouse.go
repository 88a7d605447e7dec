package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	chstore "stablebond-keeper/internal/storage/clickhouse"
)

var errQuotedSemicolon = errors.New("semicolon inside string literal")

// RunClickhouseMigrations creates the database named in dsn if needed, then
// the nav_snapshots and conversion_events tables. The returned connection
// targets that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+db)
	_ = admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", db, err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	for _, m := range files {
		stmts, err := splitStatements(m.body)
		if err == nil {
			err = execAll(ctx, conn, stmts)
		}
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return conn, nil
}

func execAll(ctx context.Context, conn *chstore.Conn, stmts []string) error {
	for _, s := range stmts {
		if err := conn.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements breaks a file into single statements, since the native
// protocol executes one per call. Only -- line comments are understood, and
// a semicolon inside a quoted string is rejected rather than mis-split.
func splitStatements(sql string) ([]string, error) {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		quoted := false
		for i := 0; i < len(line); i++ {
			switch ch := line[i]; {
			case ch == '\'':
				quoted = !quoted
				cur.WriteByte(ch)
			case ch == ';' && quoted:
				return nil, errQuotedSemicolon
			case ch == ';':
				flush()
			default:
				cur.WriteByte(ch)
			}
		}
		cur.WriteByte('\n')
	}
	flush()
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
