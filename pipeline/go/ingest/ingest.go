// Package ingest writes device readings arriving over Pub/Sub to a
// devicestore.Store, either as a push endpoint or by pulling from a
// subscription.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/cenkalti/backoff/v4"

	"github.com/kodariks/iot-webapp/go/httputils"
	"github.com/kodariks/iot-webapp/go/metrics2"
	"github.com/kodariks/iot-webapp/go/now"
	"github.com/kodariks/iot-webapp/go/skerr"
	"github.com/kodariks/iot-webapp/go/sklog"
	"github.com/kodariks/iot-webapp/pipeline/go/devicedata"
	"github.com/kodariks/iot-webapp/pipeline/go/devicestore"
)

const (
	sourcePush = "push"
	sourcePull = "pull"
)

// pushEnvelope is the body of a Pub/Sub push request.
type pushEnvelope struct {
	Message struct {
		// Data is base64 in the JSON; encoding/json decodes it into bytes.
		Data        []byte            `json:"data"`
		MessageID   string            `json:"messageId"`
		PublishTime time.Time         `json:"publishTime"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// invalidMessageError marks a message which can never be stored, so
// redelivering it is pointless.
type invalidMessageError struct {
	err error
}

func (e invalidMessageError) Error() string {
	return e.err.Error()
}

func (e invalidMessageError) Unwrap() error {
	return e.err
}

type counters struct {
	received metrics2.Counter
	written  metrics2.Counter
	failed   metrics2.Counter
}

// Ingester writes readings to a Store.
type Ingester struct {
	store   devicestore.Store
	metrics *metrics2.Client
	push    counters
	pull    counters
}

// New returns an Ingester writing to store. A nil metrics client means
// metrics2.DefaultClient.
func New(store devicestore.Store, metrics *metrics2.Client) *Ingester {
	if metrics == nil {
		metrics = metrics2.DefaultClient
	}
	in := &Ingester{
		store:   store,
		metrics: metrics,
	}
	in.push = in.newCounters(sourcePush)
	in.pull = in.newCounters(sourcePull)
	return in
}

func (in *Ingester) newCounters(source string) counters {
	tags := map[string]string{"source": source}
	return counters{
		received: in.metrics.GetCounter("pipeline_readings_received", tags),
		written:  in.metrics.GetCounter("pipeline_readings_written", tags),
		failed:   in.metrics.GetCounter("pipeline_readings_failed", tags),
	}
}

// ingest decodes and stores one message payload. publishTime stands in for
// a missing reading timestamp.
func (in *Ingester) ingest(ctx context.Context, c counters, data []byte, publishTime time.Time) (string, error) {
	c.received.Inc(1)
	r, err := devicedata.Decode(data)
	if err == nil && r.Timestamp.IsZero() {
		r.Timestamp = publishTime
		if r.Timestamp.IsZero() {
			r.Timestamp = now.Now(ctx)
		}
	}
	if err == nil {
		err = r.Validate()
	}
	if err != nil {
		c.failed.Inc(1)
		return "", invalidMessageError{err: err}
	}
	rowKey, err := in.store.Write(ctx, r)
	if err != nil {
		c.failed.Inc(1)
		return "", skerr.Wrap(err)
	}
	c.written.Inc(1)
	return rowKey, nil
}

// PushHandler returns the handler for Pub/Sub push requests. Messages which
// can never be stored are answered with 400 so Pub/Sub drops them; store
// failures with 500 so they are redelivered.
func (in *Ingester) PushHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env pushEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			in.push.failed.Inc(1)
			httputils.ReportError(w, err, "Invalid Pub/Sub push envelope.", http.StatusBadRequest)
			return
		}
		rowKey, err := in.ingest(r.Context(), in.push, env.Message.Data, env.Message.PublishTime)
		if err != nil {
			var invalid invalidMessageError
			if errors.As(err, &invalid) {
				httputils.ReportError(w, err, "Invalid device reading.", http.StatusBadRequest)
			} else {
				httputils.ReportError(w, err, "Failed to store device reading.", http.StatusInternalServerError)
			}
			return
		}
		sklog.Debugf("Stored message %s from %s as %s", env.Message.MessageID, env.Subscription, rowKey)
		httputils.WriteJSON(w, map[string]string{"row_key": rowKey})
	})
}

// handleMessage is the pubsub.Subscription.Receive callback.
func (in *Ingester) handleMessage(ctx context.Context, msg *pubsub.Message) {
	rowKey, err := in.ingest(ctx, in.pull, msg.Data, msg.PublishTime)
	if err != nil {
		var invalid invalidMessageError
		if errors.As(err, &invalid) {
			sklog.Errorf("Dropping message %s: %s", msg.ID, err)
			msg.Ack()
			return
		}
		sklog.Errorf("Failed to store message %s: %s", msg.ID, err)
		msg.Nack()
		return
	}
	sklog.Debugf("Stored message %s as %s", msg.ID, rowKey)
	msg.Ack()
}

// Receive pulls readings from sub until ctx is cancelled, restarting the
// underlying Receive with exponential backoff if it fails. It returns nil
// once ctx is done.
func (in *Ingester) Receive(ctx context.Context, sub *pubsub.Subscription) error {
	op := func() error {
		err := sub.Receive(ctx, in.handleMessage)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = skerr.Fmt("Receive on %s returned early", sub.ID())
		}
		sklog.Errorf("Pulling from %s failed, retrying: %s", sub.ID(), err)
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	if ctx.Err() != nil {
		return nil
	}
	return skerr.Wrap(err)
}
