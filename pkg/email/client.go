package email

import (
	"context"
	"fmt"
	"mime"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

// recentWindow bounds the search to messages from the last week
const recentWindow = 7 * 24 * time.Hour

// Client fetches bounded inbox message summaries over IMAP. The pipeline
// treats the mailbox as read-only; summaries are envelope data only, message
// bodies are never downloaded.
type Client struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	linkBase string
}

// Config holds IMAP connection settings
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	LinkBase string // base URL for message deep links, optional
}

// NewClient creates an IMAP summary client
func NewClient(cfg Config) *Client {
	return &Client{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		tls:      cfg.TLS,
		linkBase: cfg.LinkBase,
	}
}

// connect dials the IMAP server and authenticates. The caller is responsible
// for Logout on the returned client.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	// decode RFC 2047 encoded-word subjects with full charset support
	options := &imapclient.Options{
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	}

	var client *imapclient.Client
	var err error
	if c.tls {
		client, err = imapclient.DialTLS(addr, options)
	} else {
		client, err = imapclient.DialStartTLS(addr, options)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("login as %s: %w", c.username, err)
	}

	return client, nil
}

// ListMessages selects INBOX, searches the recent window and returns up to
// limit message summaries, most recent last
func (c *Client) ListMessages(ctx context.Context, limit int) ([]domain.EmailMessage, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("select INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{Since: time.Now().Add(-recentWindow)}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	})

	var messages []domain.EmailMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		messages = append(messages, c.toMessage(buf))
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetch envelopes: %w", err)
	}

	return messages, nil
}

// toMessage maps a fetched envelope buffer to a domain message summary
func (c *Client) toMessage(buf *imapclient.FetchMessageBuffer) domain.EmailMessage {
	m := domain.EmailMessage{
		ID:     fmt.Sprintf("%d", buf.UID),
		Unread: true,
	}

	if buf.Envelope != nil {
		m.Subject = buf.Envelope.Subject
		m.Date = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				m.From = fmt.Sprintf("%q <%s>", from.Name, from.Addr())
			} else {
				m.From = from.Addr()
			}
		}
	}

	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			m.Unread = false
		}
	}

	if c.linkBase != "" {
		m.URL = fmt.Sprintf("%s/%s", c.linkBase, m.ID)
	}

	return m
}
