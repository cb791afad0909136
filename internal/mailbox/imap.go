package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Raw is an unparsed message fetched from a mailbox.
type Raw struct {
	UID  uint32
	Data []byte
}

// Source yields raw messages received since a point in time.
type Source interface {
	Fetch(ctx context.Context, since time.Time) ([]Raw, error)
}

// IMAPConfig holds mailbox connection settings.
type IMAPConfig struct {
	Addr       string // host:port
	Username   string
	Password   string
	Folder     string // Gmail labels are folders, e.g. "LifeAdmin"
	Insecure   bool   // plain TCP instead of TLS, for local test servers
	MaxResults int
}

// IMAPSource fetches messages from one IMAP folder.
type IMAPSource struct {
	config IMAPConfig
}

// NewIMAPSource validates the config.
func NewIMAPSource(config IMAPConfig) (*IMAPSource, error) {
	if config.Addr == "" {
		return nil, errors.New("imap address is required")
	}
	if config.Username == "" {
		return nil, errors.New("imap username is required")
	}
	if config.Folder == "" {
		config.Folder = "INBOX"
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 50
	}
	return &IMAPSource{config: config}, nil
}

// Fetch returns up to MaxResults of the newest messages received since since.
// Messages are not marked as seen.
func (s *IMAPSource) Fetch(ctx context.Context, since time.Time) ([]Raw, error) {
	c, err := s.dial()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	stop := context.AfterFunc(ctx, func() { c.Terminate() })
	defer stop()

	if err := c.Login(s.config.Username, s.config.Password); err != nil {
		return nil, fmt.Errorf("failed to log in to %s: %w", s.config.Addr, err)
	}
	if _, err := c.Select(s.config.Folder, true); err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", s.config.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	if !since.IsZero() {
		criteria.Since = since
	}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", s.config.Folder, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > s.config.MaxResults {
		uids = uids[len(uids)-s.config.MaxResults:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var out []Raw
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			slog.Warn("message without body", "uid", msg.Uid)
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			slog.Warn("failed to read message", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, Raw{UID: msg.Uid, Data: data})
	}
	if err := <-done; err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, fmt.Errorf("failed to fetch messages: %w", err)
	}

	slog.Info("fetched messages", "folder", s.config.Folder, "count", len(out))
	return out, nil
}

func (s *IMAPSource) dial() (*client.Client, error) {
	var (
		c   *client.Client
		err error
	)
	if s.config.Insecure {
		c, err = client.Dial(s.config.Addr)
	} else {
		c, err = client.DialTLS(s.config.Addr, &tls.Config{MinVersion: tls.VersionTLS12})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.config.Addr, err)
	}
	c.Timeout = time.Minute
	return c, nil
}
