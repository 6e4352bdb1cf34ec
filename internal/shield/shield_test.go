package shield

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestCreateProducesValidAESShield(t *testing.T) {
	cfg, err := Create(ProtocolAES256)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(cfg.PublicKey) != 128 {
		t.Fatalf("key length = %d, want 128", len(cfg.PublicKey))
	}
	if len(cfg.ChallengeResponse) != 64 {
		t.Fatalf("response length = %d, want 64", len(cfg.ChallengeResponse))
	}
	v := Validate(cfg)
	if !v.Valid || v.Strength != 40 || len(v.Vulnerabilities) != 0 {
		t.Fatalf("unexpected validation: %+v", v)
	}
}

func TestValidateRSAFlagsTimingAttack(t *testing.T) {
	cfg, err := Create(ProtocolRSA2048)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v := Validate(cfg)
	if v.Valid {
		t.Fatal("expected rsa shield to be invalid")
	}
	if v.Strength != 33 {
		t.Fatalf("strength = %d, want 33", v.Strength)
	}
	if len(v.Vulnerabilities) != 1 || v.Vulnerabilities[0] != VulnRSATiming {
		t.Fatalf("vulnerabilities = %v", v.Vulnerabilities)
	}
}

func TestValidatePenalizesShortMaterial(t *testing.T) {
	v := Validate(Config{PublicKey: "abcd", ChallengeResponse: "ef", Protocol: ProtocolChaCha20, Strength: 38})
	if v.Strength != 23 {
		t.Fatalf("strength = %d, want 23", v.Strength)
	}
	if len(v.Vulnerabilities) != 2 {
		t.Fatalf("vulnerabilities = %v", v.Vulnerabilities)
	}

	v = Validate(Config{Protocol: ProtocolRSA2048, Strength: 4})
	if v.Strength != 0 {
		t.Fatalf("strength = %d, want clamp to 0", v.Strength)
	}
}

func TestCreateRejectsUnknownProtocol(t *testing.T) {
	if _, err := Create("ROT13"); !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
	if _, err := ParseProtocol(" chacha20 "); err != nil {
		t.Fatalf("parse chacha20: %v", err)
	}
	if _, err := ParseProtocol("des"); !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
}

func frozenClock() func() time.Time {
	at := time.Unix(1700000000, 0)
	return func() time.Time { return at }
}

func TestSimulateBreachIsDeterministicForSeed(t *testing.T) {
	def := Config{Protocol: ProtocolAES256, Strength: 40}
	a := NewSimulator(rand.New(rand.NewSource(7))).WithClock(frozenClock())
	b := NewSimulator(rand.New(rand.NewSource(7))).WithClock(frozenClock())
	for i := 0; i < 5; i++ {
		oa := a.SimulateBreach(35, def, 5*time.Second)
		ob := b.SimulateBreach(35, def, 5*time.Second)
		if oa != ob {
			t.Fatalf("run %d diverged: %+v vs %+v", i, oa, ob)
		}
	}
}

func TestSimulateBreachDamageFollowsAttempts(t *testing.T) {
	def := Config{Protocol: ProtocolAES256, Strength: 40}
	threshold := 40.0 * 25
	for seed := int64(0); seed < 50; seed++ {
		sim := NewSimulator(rand.New(rand.NewSource(seed))).WithClock(frozenClock())
		out := sim.SimulateBreach(30, def, 5*time.Second)
		if out.Attempts < 1 || out.Attempts > 30000 {
			t.Fatalf("seed %d: attempts = %d", seed, out.Attempts)
		}
		limit := 50.0
		if out.Breached {
			limit = 100
		}
		want := math.Min(limit, float64(out.Attempts)/threshold*limit)
		if out.DamageDealt != want {
			t.Fatalf("seed %d: damage = %v, want %v (%+v)", seed, out.DamageDealt, want, out)
		}
	}
}

func TestSimulateBreachZeroAttackPower(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewSource(1))).WithClock(frozenClock())
	out := sim.SimulateBreach(0, Config{Strength: 40}, time.Second)
	if out.Breached || out.Attempts != 0 || out.DamageDealt != 0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestSimulateBreachRespectsBudget(t *testing.T) {
	at := time.Unix(0, 0)
	tick := func() time.Time {
		at = at.Add(time.Millisecond)
		return at
	}
	sim := NewSimulator(rand.New(rand.NewSource(3))).WithClock(tick)
	out := sim.SimulateBreach(50, Config{Strength: 40}, 10*time.Millisecond)
	if out.Attempts > 10 {
		t.Fatalf("attempts = %d, budget should stop the loop early", out.Attempts)
	}
}

func TestComputeIntegrity(t *testing.T) {
	cfg := Config{Strength: 40}
	if got := ComputeIntegrity(cfg, 50); math.Abs(got-70) > 1e-9 {
		t.Fatalf("integrity = %v, want 70", got)
	}
	if got := ComputeIntegrity(cfg, 500); got != 0 {
		t.Fatalf("integrity = %v, want 0", got)
	}
	if got := ComputeIntegrity(cfg, 0); got != 100 {
		t.Fatalf("integrity = %v, want 100", got)
	}
}
