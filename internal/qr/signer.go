// Package qr produces the opaque booking confirmation payload consumed by an
// external QR encoder. The HS256 signature is the tamper check.
package qr

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the signed confirmation payload.
type Claims struct {
	BookingID int64     `json:"booking_id"`
	DriverID  int64     `json:"driver_id"`
	SlotStart time.Time `json:"slot_start"`
	SlotEnd   time.Time `json:"slot_end"`
	jwt.RegisteredClaims
}

// Signer signs and verifies confirmation payloads.
type Signer struct {
	secret []byte
	grace  time.Duration
}

// NewSigner returns configured signer. The grace duration extends payload
// validity past the scheduled end, covering late checkouts.
func NewSigner(secret string, grace time.Duration) *Signer {
	if grace <= 0 {
		grace = time.Hour
	}
	return &Signer{secret: []byte(secret), grace: grace}
}

// Encode issues the signed payload for a confirmed booking.
func (s *Signer) Encode(bookingID, driverID int64, slotStart, slotEnd time.Time) (string, error) {
	if bookingID == 0 {
		return "", errors.New("qr: booking id is required")
	}

	now := time.Now().UTC()
	claims := Claims{
		BookingID: bookingID,
		DriverID:  driverID,
		SlotStart: slotStart.UTC(),
		SlotEnd:   slotEnd.UTC(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(slotEnd.UTC().Add(s.grace)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and decodes the payload.
func (s *Signer) Verify(payload string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(payload, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("qr: unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("qr: invalid claims")
}
