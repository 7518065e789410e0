package client

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"vcard-service/internal/config"
	"vcard-service/internal/util"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ScyllaClient is the KV backend for STORE_BACKEND=scylla. Every key is one
// row of a two-column table:
//
//	CREATE TABLE device_storage (k text PRIMARY KEY, v text)
type ScyllaClient struct {
	Session *gocql.Session
	config  *config.ScyllaConfig

	getStmt string
	setStmt string
	delStmt string
}

func NewScyllaClient(cfg *config.Config) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla
	if !tableName.MatchString(scyllaConfig.Table) {
		return nil, fmt.Errorf("invalid scylla table name %q", scyllaConfig.Table)
	}

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 2
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
		getStmt: fmt.Sprintf(`SELECT v FROM %s WHERE k = ?`, scyllaConfig.Table),
		setStmt: fmt.Sprintf(`INSERT INTO %s (k, v) VALUES (?, ?)`, scyllaConfig.Table),
		delStmt: fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, scyllaConfig.Table),
	}

	if err := client.ensureTable(); err != nil {
		session.Close()
		return nil, err
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace),
		zap.String("table", scyllaConfig.Table))

	return client, nil
}

func (s *ScyllaClient) ensureTable() error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (k text PRIMARY KEY, v text)`, s.config.Table)
	if err := s.Session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("failed to create scylla table: %w", err)
	}
	return nil
}

func (s *ScyllaClient) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.Session.Query(s.getStmt, key).WithContext(ctx).Scan(&v)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return "", fmt.Errorf("scylla get %s: %w", key, err)
	}
	return v, nil
}

func (s *ScyllaClient) Set(ctx context.Context, key, value string) error {
	if err := s.Session.Query(s.setStmt, key, value).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("scylla set %s: %w", key, err)
	}
	return nil
}

// Del removes keys in one unlogged batch.
func (s *ScyllaClient) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	batch := s.Session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, k := range keys {
		batch.Query(s.delStmt, k)
	}
	if err := s.Session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("scylla del: %w", err)
	}
	return nil
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}
