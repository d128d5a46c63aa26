package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/fsoubelet/toychain/config"
	"github.com/fsoubelet/toychain/model"
	"go.uber.org/zap"
)

// Cap on a /chain response body.
const MAX_CHAIN_RESPONSE_BYTES = 64 << 20

// FullNodeClient talks to other full nodes over their HTTP API.
type FullNodeClient struct {
	httpClient *http.Client
	// Timeout of a single attempt.
	timeout time.Duration
	// Extra attempts after the first one fails.
	retries uint64
	logger  *zap.Logger
}

func NewFullNodeClient(c config.AppConfig, logger *zap.Logger) *FullNodeClient {
	return &FullNodeClient{
		httpClient: &http.Client{},
		timeout:    c.PEER_TIMEOUT,
		retries:    c.PEER_RETRIES,
		logger:     logger,
	}
}

// StatusError is returned when a peer answers with a non 2xx status.
type StatusError struct {
	Peer       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("peer %s answered %d", e.Peer, e.StatusCode)
}

// FetchChain gets the full chain of the node at peer (host:port). With no
// retries configured a single attempt is made. Otherwise transport failures
// are retried with exponential backoff, a bad status is not.
func (c *FullNodeClient) FetchChain(ctx context.Context, peer string) (*model.ChainResponse, error) {
	if c.retries == 0 {
		return c.fetchChainOnce(ctx, peer)
	}

	var res *model.ChainResponse
	attempt := 0
	operation := func() error {
		attempt++
		r, err := c.fetchChainOnce(ctx, peer)
		if err != nil {
			c.logger.Debug("fetch chain attempt failed",
				zap.String("peer", peer), zap.Int("attempt", attempt), zap.Error(err))
			if _, ok := err.(*StatusError); ok {
				return backoff.Permanent(err)
			}
			if _, ok := err.(*json.SyntaxError); ok {
				return backoff.Permanent(err)
			}
			return err
		}
		res = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = config.PEER_RETRY_MAX_INTERVAL
	b.MaxElapsedTime = config.FetchBudget(c.timeout, c.retries)
	// WithMaxRetries treats 0 as unlimited, hence the early return above.
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx))
	if perr, ok := err.(*backoff.PermanentError); ok {
		err = perr.Err
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *FullNodeClient) fetchChainOnce(ctx context.Context, peer string) (*model.ChainResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+peer+"/chain", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Peer: peer, StatusCode: resp.StatusCode}
	}

	res := &model.ChainResponse{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MAX_CHAIN_RESPONSE_BYTES)).Decode(res); err != nil {
		return nil, err
	}
	return res, nil
}
