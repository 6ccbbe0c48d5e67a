package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Message is one fetched email with its MIME parts decoded.
type Message struct {
	ExternalID  string // Message-ID header; stable across runs
	Subject     string
	Sender      string
	Date        time.Time
	BodyText    string
	BodyHTML    string
	Attachments []Attachment
}

// Attachment is a decoded attachment part
type Attachment struct {
	Filename string
	MimeType string
	Size     int64
	Data     []byte
}

// ClientConfig configuration for the IMAP client
type ClientConfig struct {
	Server      string // host:port
	User        string
	Password    string
	Mailbox     string
	DialTimeout time.Duration
}

// Client is an IMAP client for the single ingestion mailbox
type Client struct {
	config    ClientConfig
	client    *client.Client
	logger    *slog.Logger
	connected bool
}

// NewClient creates a new IMAP client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Client{
		config: cfg,
		logger: logger.With("server", cfg.Server),
	}
}

// Connect connects to the IMAP server and selects the mailbox
func (c *Client) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	c.logger.Info("connecting to IMAP server")

	timeout := c.config.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", c.config.Server, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := imapClient.Login(c.config.User, c.config.Password); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	if _, err := imapClient.Select(c.config.Mailbox, true); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to select %s: %w", c.config.Mailbox, err)
	}

	c.client = imapClient
	c.connected = true
	c.logger.Info("connected to IMAP server", "mailbox", c.config.Mailbox)

	return nil
}

// Close logs out from the server
func (c *Client) Close() error {
	if !c.connected || c.client == nil {
		return nil
	}
	c.connected = false
	return c.client.Logout()
}

// Search returns the UIDs of messages matching the sender filters,
// optionally bounded to messages received on or after since. Sender
// filters are plain addresses or @domain suffixes, ORed together.
func (c *Client) Search(ctx context.Context, senders []string, since *time.Time) ([]uint32, error) {
	if !c.connected || c.client == nil {
		return nil, fmt.Errorf("not connected")
	}
	if len(senders) == 0 {
		return nil, fmt.Errorf("no sender filters configured")
	}

	criteria := imap.NewSearchCriteria()
	if since != nil {
		// IMAP SINCE has day granularity; the overlap at the boundary is
		// resolved by the already-stored check downstream.
		criteria.Since = since.Truncate(24 * time.Hour)
	}
	attachSenderFilters(criteria, senders)

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	return uids, nil
}

// attachSenderFilters adds an OR chain of FROM header criteria
func attachSenderFilters(criteria *imap.SearchCriteria, senders []string) {
	if len(senders) == 1 {
		criteria.Header = fromHeader(senders[0])
		return
	}

	left := imap.NewSearchCriteria()
	left.Header = fromHeader(senders[0])
	for _, sender := range senders[1:] {
		right := imap.NewSearchCriteria()
		right.Header = fromHeader(sender)

		parent := imap.NewSearchCriteria()
		parent.Or = [][2]*imap.SearchCriteria{{left, right}}
		left = parent
	}
	criteria.Or = left.Or
}

func fromHeader(sender string) textproto.MIMEHeader {
	return textproto.MIMEHeader{"From": []string{strings.TrimPrefix(sender, "*")}}
}

// Fetch retrieves and parses the full messages for the given UIDs
func (c *Client) Fetch(ctx context.Context, uids []uint32) ([]*Message, error) {
	if !c.connected || c.client == nil {
		return nil, fmt.Errorf("not connected")
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var result []*Message
	for msg := range messages {
		parsed, err := c.parseMessage(msg, section)
		if err != nil {
			c.logger.Warn("failed to parse message", "uid", msg.Uid, "error", err)
			continue
		}
		result = append(result, parsed)
	}

	if err := <-done; err != nil {
		return result, fmt.Errorf("failed to fetch: %w", err)
	}

	return result, nil
}

// parseMessage parses an IMAP message, including attachment parts
func (c *Client) parseMessage(msg *imap.Message, section *imap.BodySectionName) (*Message, error) {
	parsed := &Message{}

	if msg.Envelope != nil {
		parsed.Subject = msg.Envelope.Subject
		parsed.Date = msg.Envelope.Date
		parsed.ExternalID = msg.Envelope.MessageId
		if len(msg.Envelope.From) > 0 {
			parsed.Sender = msg.Envelope.From[0].Address()
		}
	}
	if parsed.ExternalID == "" {
		parsed.ExternalID = fmt.Sprintf("uid-%d", msg.Uid)
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return parsed, nil
	}

	mr, err := mail.CreateReader(bodyReader)
	if err != nil {
		return parsed, fmt.Errorf("failed to create mail reader: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.logger.Warn("failed to read part", "error", err)
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if strings.HasPrefix(ct, "text/html") {
				parsed.BodyHTML = string(body)
			} else if strings.HasPrefix(ct, "text/plain") {
				parsed.BodyText = string(body)
			}

		case *mail.AttachmentHeader:
			filename, err := h.Filename()
			if err != nil || filename == "" {
				continue
			}
			ct, _, _ := h.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				c.logger.Warn("failed to read attachment", "filename", filename, "error", err)
				continue
			}
			parsed.Attachments = append(parsed.Attachments, Attachment{
				Filename: filename,
				MimeType: ct,
				Size:     int64(len(data)),
				Data:     data,
			})
		}
	}

	return parsed, nil
}
