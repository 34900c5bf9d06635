package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/metrics"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
)

// Deliveries to distinct subscribers run concurrently, bounded so one event
// with many subscribers cannot exhaust outbound connections.
const dispatchConcurrency = 8

// asyncDispatchTimeout bounds background fan-out triggered by DispatchAsync.
const asyncDispatchTimeout = 30 * time.Second

// Dispatch delivers an event to every enabled subscription of the
// organization that selects eventType. Subscriptions are read fresh on every
// call. Per-subscriber failures are logged and isolated; Dispatch fails only
// when the subscription read itself fails.
func (s *WebhookService) Dispatch(ctx context.Context, orgID, eventType string, payload any) error {
	eps, err := s.List(ctx, orgID)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", eventType, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(dispatchConcurrency)

	for i := range eps {
		ep := eps[i]
		if !ep.Enabled || !ep.SubscribedTo(eventType) {
			continue
		}
		g.Go(func() error {
			if err := s.deliver(ctx, &ep, eventType, payload); err != nil {
				metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
				s.logger.Warn().Err(err).
					Str("endpoint_id", ep.ID).
					Str("event", eventType).
					Msg("webhook delivery failed")
				return nil
			}
			metrics.WebhookDeliveriesTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}

	return g.Wait()
}

// DispatchAsync runs Dispatch in the background with its own deadline so the
// triggering operation never blocks on, or fails from, notification delivery.
func (s *WebhookService) DispatchAsync(orgID, eventType string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncDispatchTimeout)
		defer cancel()
		if err := s.Dispatch(ctx, orgID, eventType, payload); err != nil {
			s.logger.Error().Err(err).
				Str("org_id", orgID).
				Str("event", eventType).
				Msg("webhook dispatch failed")
		}
	}()
}

func (s *WebhookService) deliver(ctx context.Context, ep *model.WebhookEndpoint, eventType string, payload any) error {
	now := time.Now().Unix()
	body, err := json.Marshal(model.Event{
		Event:     eventType,
		Timestamp: now,
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event", eventType)
	req.Header.Set("X-Signature", SignatureHeader(now, Sign(ep.Secret, now, body)))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", ep.URL, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", ep.URL, resp.StatusCode)
	}
	return nil
}
