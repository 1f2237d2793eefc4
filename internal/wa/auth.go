package wa

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Pairing event kinds, also published on the bus under session.
const (
	PairQRCode        = "qr_code"
	PairAuthenticated = "authenticated"
	PairFailed        = "auth_failed"
	PairTimeout       = "timeout"
)

// ErrAlreadyPaired is returned by StartQRAuth when credentials exist.
var ErrAlreadyPaired = errors.New("already logged in")

// PairEvent is one step of QR pairing.
type PairEvent struct {
	Type    string `json:"type"`
	QRCode  string `json:"qr_code,omitempty"`
	Message string `json:"message,omitempty"`
}

// StartQRAuth connects with a fresh QR channel and relays its items until
// pairing succeeds, fails or times out. The returned channel is closed at
// the end.
func (a *Adapter) StartQRAuth(ctx context.Context) (<-chan PairEvent, error) {
	if a.IsLoggedIn() {
		return nil, ErrAlreadyPaired
	}
	qrChan, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan PairEvent, 10)
	emit := func(evt PairEvent) {
		out <- evt
		a.bus.Emit("session."+evt.Type, evt)
	}

	go func() {
		defer close(out)

		if err := a.Connect(); err != nil {
			emit(PairEvent{Type: PairFailed, Message: err.Error()})
			return
		}

		for item := range qrChan {
			switch {
			case item.Event == "code":
				emit(PairEvent{Type: PairQRCode, QRCode: item.Code})
			case item.Event == "success":
				a.logger.Info("device paired", zap.String("phone", a.PhoneNumber()))
				emit(PairEvent{Type: PairAuthenticated, Message: "authenticated"})
				return
			case item.Event == "timeout":
				emit(PairEvent{Type: PairTimeout, Message: "QR code timeout"})
				return
			case item.Error != nil:
				emit(PairEvent{Type: PairFailed, Message: item.Error.Error()})
				return
			}
		}
	}()

	return out, nil
}
