// Package devseed fills a store with fake users and tasks for development and
// testing.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/storage/db"
	"github.com/stolasapp/todotoday/internal/todo"
)

// Generation constants.
const (
	// Password is the password of every seeded user.
	Password = "secret1"
	// Role is granted to every seeded user.
	Role = "USER"

	minTasks         = 3
	maxExtraTasks    = 4 // 3-6 tasks per user
	minItems         = 2
	maxExtraItems    = 3 // 2-4 checklist items
	minWords         = 4
	maxExtraWords    = 8 // 4-11 words per sentence
	notesProbability = 0.6
	listProbability  = 0.4
	doneProbability  = 0.3
)

// Usernames are the users created by [Populate].
var Usernames = []string{"alice", "bob"}

// Seed returns the generator seed from the TODOTODAY_DEV_SEED environment
// variable, or a random value if not set.
func Seed() uint64 {
	if env := os.Getenv("TODOTODAY_DEV_SEED"); env != "" {
		if seed, err := strconv.ParseUint(env, 10, 64); err == nil {
			return seed
		}
	}
	return rand.Uint64() //nolint:gosec // intentionally weak random for test data
}

// Generator produces fake tasks. It is not safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
}

// New creates a Generator with the given seed; equal seeds produce equal
// sequences of tasks.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Draft returns the title and notes of a fake task.
func (g *Generator) Draft() todo.Draft {
	title := fmt.Sprintf("%s the %s %s",
		capitalize(g.faker.Verb()),
		g.faker.Adjective(),
		g.faker.Noun(),
	)
	var notes string
	if g.faker.Float64() < notesProbability {
		notes = g.notes()
	}
	return todo.Draft{Title: title, Notes: notes}
}

// Done reports whether a fake task should be marked done.
func (g *Generator) Done() bool {
	return g.faker.Float64() < doneProbability
}

func (g *Generator) notes() string {
	var builder strings.Builder
	builder.WriteString(g.faker.Sentence(minWords + g.faker.IntN(maxExtraWords)))
	if g.faker.Float64() >= listProbability {
		return builder.String()
	}
	builder.WriteString("\n")
	for range minItems + g.faker.IntN(maxExtraItems) {
		mark := " "
		if g.faker.Bool() {
			mark = "x"
		}
		fmt.Fprintf(&builder, "\n- [%s] %s", mark, g.faker.Hobby())
	}
	return builder.String()
}

// Tasks creates count fake tasks owned by ownerID.
func (g *Generator) Tasks(ctx context.Context, tasks *todo.Service, ownerID uint64, count int) ([]db.Task, error) {
	out := make([]db.Task, 0, count)
	for range count {
		task, err := tasks.Create(ctx, ownerID, g.Draft())
		if err != nil {
			return out, err
		}
		if g.Done() {
			if task, err = tasks.SetDone(ctx, ownerID, task.ID, true); err != nil {
				return out, err
			}
		}
		out = append(out, task)
	}
	return out, nil
}

// Populate creates the [Usernames] with [Password] and a few tasks each. Users
// that already exist are left untouched, so it is safe to run on every start.
func Populate(
	ctx context.Context,
	users storage.Users,
	tasks *todo.Service,
	hasher sec.Hasher,
	gen *Generator,
	logger *slog.Logger,
) error {
	hash, err := hasher.Hash(Password)
	if err != nil {
		return err
	}
	for _, name := range Usernames {
		_, err = users.GetUserByName(ctx, name)
		if err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		user, err := users.UpsertUser(ctx, db.User{
			Name:         name,
			PasswordHash: hash,
			Roles:        []string{Role},
		})
		if err != nil {
			return fmt.Errorf("failed to create user %q: %w", name, err)
		}
		created, err := gen.Tasks(ctx, tasks, user.ID, minTasks+gen.faker.IntN(maxExtraTasks))
		if err != nil {
			return fmt.Errorf("failed to create tasks for %q: %w", name, err)
		}
		logger.InfoContext(ctx, "seeded dev user",
			slog.Any("user", user),
			slog.Int("tasks", len(created)),
		)
	}
	return nil
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}
