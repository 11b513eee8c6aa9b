// Package seed fills an event store with synthetic history by running
// generated documents through a recognizer. It is meant for local
// environments and demos.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/privashield/leakwatch/internal/recognizer"
	"github.com/privashield/leakwatch/internal/store"
)

var (
	firstNames = []string{"John", "Jane", "Michael", "Emily", "David", "Sarah", "Robert", "Lisa", "William", "Jennifer", "Minji", "Jisoo", "Hyun", "Seo-yeon"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Kim", "Lee", "Park", "Choi"}
	streets    = []string{"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Pine Rd", "Teheran-ro", "Gangnam-daero"}
	companies  = []string{"acmecorp", "techstart", "dataflow", "cloudnine", "securenet"}
	cleanLines = []string{
		"Quarterly planning notes for the platform team.",
		"Remember to rotate the on-call schedule before the holidays.",
		"The design review is moved to Thursday afternoon.",
		"Draft agenda: roadmap, hiring, retrospective.",
	}
)

// Kind names a family of generated documents.
type Kind string

const (
	KindEmployee Kind = "employee"
	KindPayment  Kind = "payment"
	KindConfig   Kind = "config"
	KindNetwork  Kind = "network"
	KindClean    Kind = "clean"
)

var kinds = []Kind{KindEmployee, KindPayment, KindConfig, KindNetwork, KindClean}

type Options struct {
	Identities int
	Days       int
	MaxPerDay  int
	Language   string
	Seed       int64
	Now        time.Time
	Location   *time.Location
}

type Stats struct {
	Identities int `json:"identities"`
	Documents  int `json:"documents"`
	Events     int `json:"events"`
}

// Generator produces synthetic documents. It is not safe for concurrent use.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) pick(items []string) string {
	return items[g.rnd.Intn(len(items))]
}

// Document returns one document of the given kind.
func (g *Generator) Document(kind Kind) string {
	switch kind {
	case KindEmployee:
		return g.employee()
	case KindPayment:
		return g.payment()
	case KindConfig:
		return g.config()
	case KindNetwork:
		return g.network()
	default:
		return g.pick(cleanLines)
	}
}

// Random returns a document of a random kind.
func (g *Generator) Random() string {
	return g.Document(kinds[g.rnd.Intn(len(kinds))])
}

func (g *Generator) email() string {
	return fmt.Sprintf("%s.%s@%s.com",
		strings.ToLower(g.pick(firstNames)), strings.ToLower(g.pick(lastNames)), g.pick(companies))
}

func (g *Generator) ssn() string {
	return fmt.Sprintf("%03d-%02d-%04d", g.rnd.Intn(565)+100, g.rnd.Intn(99)+1, g.rnd.Intn(9999)+1)
}

func (g *Generator) phone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", g.rnd.Intn(700)+200, g.rnd.Intn(700)+200, g.rnd.Intn(10000))
}

func (g *Generator) employee() string {
	record := map[string]interface{}{
		"name":    g.pick(firstNames) + " " + g.pick(lastNames),
		"ssn":     g.ssn(),
		"email":   g.email(),
		"phone":   g.phone(),
		"address": fmt.Sprintf("%d %s", g.rnd.Intn(9999)+1, g.pick(streets)),
	}
	content, _ := json.MarshalIndent(record, "", "  ")
	return string(content)
}

func (g *Generator) payment() string {
	return fmt.Sprintf("Refund issued to card %s for customer %s, receipt sent to %s.",
		g.cardNumber(), g.pick(firstNames), g.email())
}

func (g *Generator) config() string {
	const upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	var key strings.Builder
	key.WriteString("AKIA")
	for i := 0; i < 16; i++ {
		key.WriteByte(upper[g.rnd.Intn(len(upper))])
	}
	return fmt.Sprintf("AWS_ACCESS_KEY_ID=%s\nAWS_REGION=ap-northeast-2\nADMIN_EMAIL=%s\n", key.String(), g.email())
}

func (g *Generator) network() string {
	return fmt.Sprintf("host %d.%d.%d.%d (mac %02x:%02x:%02x:%02x:%02x:%02x) failed health check",
		g.rnd.Intn(223)+1, g.rnd.Intn(256), g.rnd.Intn(256), g.rnd.Intn(254)+1,
		g.rnd.Intn(256), g.rnd.Intn(256), g.rnd.Intn(256), g.rnd.Intn(256), g.rnd.Intn(256), g.rnd.Intn(256))
}

// cardNumber returns a 16 digit Visa-style number with a valid check digit.
func (g *Generator) cardNumber() string {
	digits := make([]int, 16)
	digits[0] = 4
	for i := 1; i < 15; i++ {
		digits[i] = g.rnd.Intn(10)
	}

	sum := 0
	for i := 14; i >= 0; i-- {
		d := digits[i]
		if (14-i)%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	digits[15] = (10 - sum%10) % 10

	var b strings.Builder
	for _, d := range digits {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

// IdentityName is the synthetic identity for index i.
func IdentityName(i int) string {
	return fmt.Sprintf("user%02d@example.com", i+1)
}

// Run generates history for opts.Identities identities over the last
// opts.Days calendar days, today included, and records every recognized span.
func Run(ctx context.Context, rec recognizer.Recognizer, st store.EventStore, opts Options) (Stats, error) {
	if opts.Identities <= 0 || opts.Days <= 0 || opts.MaxPerDay <= 0 {
		return Stats{}, fmt.Errorf("identities, days and max per day must be positive")
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	g := NewGenerator(opts.Seed)
	stats := Stats{Identities: opts.Identities}
	today := store.StartOfDay(opts.Now, opts.Location)

	for i := 0; i < opts.Identities; i++ {
		identity := IdentityName(i)
		for d := opts.Days - 1; d >= 0; d-- {
			day := today.AddDate(0, 0, -d)
			docs := g.rnd.Intn(opts.MaxPerDay + 1)
			for n := 0; n < docs; n++ {
				if err := ctx.Err(); err != nil {
					return stats, err
				}

				entities, err := rec.Detect(ctx, g.Random(), opts.Language)
				if err != nil {
					return stats, fmt.Errorf("recognizing seed document: %w", err)
				}
				stats.Documents++
				types := recognizer.Types(entities)
				if len(types) == 0 {
					continue
				}

				at := day.Add(time.Duration(g.rnd.Intn(int(12*time.Hour/time.Minute))) * time.Minute)
				if d == 0 && at.After(opts.Now) {
					at = opts.Now
				}
				if _, err := st.RecordBatch(ctx, identity, types, at); err != nil {
					return stats, fmt.Errorf("recording seed events: %w", err)
				}
				stats.Events += len(types)
			}
		}
	}
	return stats, nil
}
