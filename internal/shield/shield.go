// Package shield implements the symbolic defense configurations agents bring
// into a match and the randomized breach resolver used during siege rounds.
//
// Protocol kinds are labels that select a numeric strength. Nothing here
// provides confidentiality.
package shield

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	mrand "math/rand"
	"strings"
	"time"
)

type Protocol string

const (
	ProtocolAES256   Protocol = "AES-256"
	ProtocolRSA2048  Protocol = "RSA-2048"
	ProtocolChaCha20 Protocol = "CHACHA20"
)

const (
	VulnWeakKeyLength   = "WEAK_KEY_LENGTH"
	VulnInvalidResponse = "INVALID_CHALLENGE"
	VulnRSATiming       = "RSA_TIMING_ATTACK_POSSIBLE"
)

const (
	keyBytes       = 64
	challengeBytes = 32
	minKeyLen      = keyBytes * 2
	minResponseLen = 64

	weakKeyPenalty       = 5
	invalidChallengePen  = 10
	rsaTimingPenalty     = 2
	successScale         = 0.001
	attemptsPerPower     = 1000
	thresholdPerStrength = 25
	breachDamageCap      = 100.0
	blockedDamageCap     = 50.0
)

var ErrUnknownProtocol = errors.New("unknown_protocol")

var baseStrength = map[Protocol]int{
	ProtocolAES256:   40,
	ProtocolRSA2048:  35,
	ProtocolChaCha20: 38,
}

// Protocols lists the accepted protocol kinds in display order.
func Protocols() []Protocol {
	return []Protocol{ProtocolAES256, ProtocolRSA2048, ProtocolChaCha20}
}

func ParseProtocol(raw string) (Protocol, error) {
	p := Protocol(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := baseStrength[p]; !ok {
		return "", ErrUnknownProtocol
	}
	return p, nil
}

// Config is immutable once created; the orchestrator only reads it.
type Config struct {
	PublicKey         string   `json:"publicKey"`
	Protocol          Protocol `json:"protocol"`
	ChallengeResponse string   `json:"challengeResponse"`
	Strength          int      `json:"strength"`
}

type Validation struct {
	Valid           bool     `json:"valid"`
	Strength        int      `json:"strength"`
	Vulnerabilities []string `json:"vulnerabilities"`
}

// Outcome is the result of one breach simulation.
type Outcome struct {
	Breached    bool    `json:"breached"`
	Attempts    int     `json:"attempts"`
	TimeMS      int64   `json:"timeMs"`
	DamageDealt float64 `json:"damageDealt"`
}

func Create(p Protocol) (Config, error) {
	strength, ok := baseStrength[p]
	if !ok {
		return Config{}, ErrUnknownProtocol
	}
	key, err := randomHex(keyBytes)
	if err != nil {
		return Config{}, err
	}
	challenge, err := randomHex(challengeBytes)
	if err != nil {
		return Config{}, err
	}
	sum := sha256.Sum256([]byte(key + challenge))
	return Config{
		PublicKey:         key,
		Protocol:          p,
		ChallengeResponse: hex.EncodeToString(sum[:]),
		Strength:          strength,
	}, nil
}

func Validate(c Config) Validation {
	vulns := []string{}
	strength := c.Strength
	if len(c.PublicKey) < minKeyLen {
		vulns = append(vulns, VulnWeakKeyLength)
		strength -= weakKeyPenalty
	}
	if len(c.ChallengeResponse) < minResponseLen {
		vulns = append(vulns, VulnInvalidResponse)
		strength -= invalidChallengePen
	}
	if c.Protocol == ProtocolRSA2048 {
		vulns = append(vulns, VulnRSATiming)
		strength -= rsaTimingPenalty
	}
	if strength < 0 {
		strength = 0
	}
	return Validation{
		Valid:           len(vulns) == 0,
		Strength:        strength,
		Vulnerabilities: vulns,
	}
}

// ComputeIntegrity converts damage received into remaining shield integrity.
// Stronger shields convert less of the damage.
func ComputeIntegrity(c Config, damageReceived float64) float64 {
	multiplier := 1 - float64(c.Strength)/100
	return math.Max(0, 100-damageReceived*multiplier)
}

// Simulator resolves breach attempts. It is not safe for concurrent use; each
// match owns its own instance.
type Simulator struct {
	rng *mrand.Rand
	now func() time.Time
}

func NewSimulator(rng *mrand.Rand) *Simulator {
	if rng == nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rng: rng, now: time.Now}
}

// WithClock replaces the clock used for the time budget.
func (s *Simulator) WithClock(now func() time.Time) *Simulator {
	if now != nil {
		s.now = now
	}
	return s
}

// Rand exposes the random source so callers sharing a seed stay reproducible.
func (s *Simulator) Rand() *mrand.Rand {
	return s.rng
}

// SimulateBreach runs attempts until the first random success, the attempt cap
// (attackPower x 1000), or the time budget, whichever comes first.
func (s *Simulator) SimulateBreach(attackPower float64, defender Config, budget time.Duration) Outcome {
	start := s.now()
	maxAttempts := int(math.Floor(attackPower * attemptsPerPower))
	threshold := float64(defender.Strength * thresholdPerStrength)
	chance := attackPower / float64(defender.Strength+10) * successScale

	attempts := 0
	for attempts < maxAttempts && s.now().Sub(start) < budget {
		attempts++
		if s.rng.Float64() < chance {
			return Outcome{
				Breached:    true,
				Attempts:    attempts,
				TimeMS:      s.now().Sub(start).Milliseconds(),
				DamageDealt: scaledDamage(attempts, threshold, breachDamageCap),
			}
		}
	}
	return Outcome{
		Breached:    false,
		Attempts:    attempts,
		TimeMS:      s.now().Sub(start).Milliseconds(),
		DamageDealt: scaledDamage(attempts, threshold, blockedDamageCap),
	}
}

func scaledDamage(attempts int, threshold, limit float64) float64 {
	if attempts <= 0 {
		return 0
	}
	if threshold <= 0 {
		return limit
	}
	return math.Min(limit, float64(attempts)/threshold*limit)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
