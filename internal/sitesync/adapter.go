package sitesync

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/config"
	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
)

// CardChange is one modified row observed in the site database.
type CardChange struct {
	SiteCardID   string    `json:"site_card_id"`
	NNI          string    `json:"nni"`
	Coordination string    `json:"coordination"`
	Delivrance   string    `json:"delivrance"`
	Statut       string    `json:"statut"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Adapter polls the legacy SQL Server site database for card changes. The
// site system has no push mechanism, so polling on an interval is the only
// integration path. Changes fan out on the Changes channel.
type Adapter struct {
	db       *sql.DB
	config   config.SiteSyncConfig
	changes  chan CardChange
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastPoll time.Time
}

// NewAdapter opens the SQL Server connection and verifies it.
func NewAdapter(ctx context.Context, cfg config.SiteSyncConfig) (*Adapter, error) {
	query := url.Values{}
	query.Add("database", cfg.Database)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open site database connection")
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "failed to ping site database")
	}

	return &Adapter{
		db:       db,
		config:   cfg,
		changes:  make(chan CardChange, 256),
		lastPoll: time.Now().Add(-cfg.PollInterval),
	}, nil
}

// Changes returns the channel of observed card changes.
func (a *Adapter) Changes() <-chan CardChange {
	return a.changes
}

// Start launches the polling loop. Calling Start on a running adapter is a
// no-op.
func (a *Adapter) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.wg.Add(1)
	go a.pollLoop(loopCtx)
}

// Stop halts polling, waits for the loop to exit and closes the connection.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.cancel()
	a.mu.Unlock()

	a.wg.Wait()
	close(a.changes)
	a.db.Close()
}

func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.poll(ctx); err != nil {
				log.Printf("sitesync: poll failed: %v", err)
			}
		}
	}
}

// poll reads rows modified since the previous poll. The watermark only
// advances on success, so a failed poll is retried in full next tick.
func (a *Adapter) poll(ctx context.Context) error {
	since := a.lastPoll
	pollStart := time.Now()

	query := fmt.Sprintf(`
		SELECT CarteID, NNI, Coordination, Delivrance, Statut, UpdatedAt
		FROM %s
		WHERE UpdatedAt > @p1
		ORDER BY UpdatedAt ASC`, a.config.CardTable)

	rows, err := a.db.QueryContext(ctx, query, since)
	if err != nil {
		return apperrors.Wrap(err, "failed to query site card table")
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var change CardChange
		if err := rows.Scan(
			&change.SiteCardID, &change.NNI, &change.Coordination,
			&change.Delivrance, &change.Statut, &change.UpdatedAt,
		); err != nil {
			return apperrors.Wrap(err, "failed to scan site card row")
		}
		select {
		case a.changes <- change:
			count++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, "failed to iterate site card rows")
	}

	a.lastPoll = pollStart
	if count > 0 {
		log.Printf("sitesync: observed %d card change(s)", count)
	}
	return nil
}
