package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/privacy"
)

// ShoutrrrSink sends via nicholas-fedor/shoutrrr.
// Creates a single sender for multiple URLs.
type ShoutrrrSink struct {
	name    string
	urls    []string
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewShoutrrrSink builds the sender for urls. An invalid URL is reported
// with credentials scrubbed.
func NewShoutrrrSink(name string, urls []string, timeout time.Duration) (*ShoutrrrSink, error) {
	s := &ShoutrrrSink{
		name:    strings.TrimSpace(name),
		urls:    slices.Clone(urls),
		timeout: timeout,
	}
	if s.name == "" {
		s.name = "shoutrrr"
	}
	if len(s.urls) == 0 {
		return nil, errors.Newf("%s: at least one URL is required", s.name).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("sink", s.name).
			Build()
	}
	if s.timeout > 0 {
		sender.Timeout = s.timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	s.sender = sender
	return s, nil
}

func (s *ShoutrrrSink) Name() string { return s.name }

func (s *ShoutrrrSink) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// The router applies its own timeout.
	params := stypes.Params{}
	if subject != "" {
		params.SetTitle(subject)
	}
	for _, e := range s.sender.Send(body, &params) {
		if e != nil {
			return privacy.WrapError(e)
		}
	}
	return nil
}

// SMTPURL builds the shoutrrr smtp URL for the e-mail settings.
func SMTPURL(e *conf.EmailSettings) (string, error) {
	if e.SMTPServer == "" {
		return "", fmt.Errorf("smtp server is required")
	}
	if e.From == "" || e.To == "" {
		return "", fmt.Errorf("smtp from and to addresses are required")
	}

	port := e.SMTPPort
	if port == 0 {
		port = 587
	}
	u := url.URL{
		Scheme: "smtp",
		Host:   net.JoinHostPort(e.SMTPServer, strconv.Itoa(port)),
		Path:   "/",
	}
	if e.Username != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}

	recipients := strings.Split(e.To, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}
	q := url.Values{}
	q.Set("fromaddress", e.From)
	q.Set("toaddresses", strings.Join(recipients, ","))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
