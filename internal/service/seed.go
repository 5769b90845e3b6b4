package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// SeedPassword is the password of every demo account
const SeedPassword = "password123"

var seedUsers = []string{
	"John Doe", "Jane Smith", "Bob Johnson", "Alice Williams", "Charlie Brown",
	"Diana Prince", "Eve Davis", "Frank Miller", "Grace Lee", "Henry Wilson",
}

var seedProjects = []struct {
	name, description string
	status            model.ProjectStatus
	color             string
}{
	{"Website Redesign", "Complete overhaul of company website with modern design", model.ProjectActive, "#4ECDC4"},
	{"Mobile App Development", "Build native mobile app for iOS and Android", model.ProjectActive, "#FF6B6B"},
	{"E-commerce Platform", "Launch new e-commerce platform with payment integration", model.ProjectActive, "#45B7D1"},
	{"Marketing Campaign Q1", "Digital marketing campaign for Q1", model.ProjectCompleted, "#F7B731"},
	{"Cloud Migration", "Migrate infrastructure to cloud services", model.ProjectActive, "#5F27CD"},
	{"Data Analytics Dashboard", "Build comprehensive analytics dashboard for business insights", model.ProjectActive, "#00D2D3"},
	{"API Integration", "Integrate third-party APIs for payment and shipping", model.ProjectActive, "#FF9F43"},
	{"Security Audit", "Complete security audit and implement recommendations", model.ProjectCompleted, "#EE5253"},
	{"Customer Portal", "Self-service customer portal for support tickets", model.ProjectActive, "#10AC84"},
	{"Internal Tools", "Build internal tools for team productivity", model.ProjectArchived, "#8395A7"},
	{"Documentation Project", "Create comprehensive documentation for all products", model.ProjectActive, "#2E86DE"},
	{"Performance Optimization", "Optimize application performance and reduce load times", model.ProjectActive, "#FECA57"},
	{"User Research Initiative", "Conduct user research and gather feedback", model.ProjectActive, "#FF9FF3"},
	{"Design System", "Create unified design system for all products", model.ProjectCompleted, "#54A0FF"},
	{"Automated Testing", "Implement comprehensive automated testing suite", model.ProjectActive, "#1DD1A1"},
}

var seedTasks = []struct {
	title    string
	priority model.Priority
	status   model.TaskStatus
}{
	{"Design mockups", model.PriorityHigh, model.StatusCompleted},
	{"Set up development environment", model.PriorityHigh, model.StatusCompleted},
	{"Database schema design", model.PriorityHigh, model.StatusInProgress},
	{"API endpoint implementation", model.PriorityMedium, model.StatusInProgress},
	{"Frontend component development", model.PriorityMedium, model.StatusTodo},
	{"Write unit tests", model.PriorityMedium, model.StatusTodo},
	{"Integration testing", model.PriorityLow, model.StatusTodo},
	{"Code review", model.PriorityHigh, model.StatusInReview},
	{"Deploy to staging", model.PriorityHigh, model.StatusTodo},
	{"User acceptance testing", model.PriorityMedium, model.StatusTodo},
	{"Performance testing", model.PriorityMedium, model.StatusTodo},
	{"Documentation updates", model.PriorityLow, model.StatusTodo},
	{"Security review", model.PriorityUrgent, model.StatusTodo},
	{"Bug fixes", model.PriorityMedium, model.StatusInProgress},
	{"Feature enhancements", model.PriorityLow, model.StatusTodo},
}

var seedLabels = []string{"frontend", "backend", "bug", "feature", "docs", "infra"}

// SeedSummary reports what a seed run created
type SeedSummary struct {
	Users    int    `json:"users"`
	Projects int    `json:"projects"`
	Tasks    int    `json:"tasks"`
	Password string `json:"password"`
}

// Seeder replaces all data with a demo data set
type Seeder struct {
	store store.Store
	seed  int64
}

// NewSeeder creates a seeder. The same seed value always yields the same
// users, memberships and tasks.
func NewSeeder(st store.Store, seed int64) *Seeder {
	return &Seeder{store: st, seed: seed}
}

// Seed wipes every collection and creates the demo data
func (s *Seeder) Seed(ctx context.Context) (*SeedSummary, error) {
	rng := rand.New(rand.NewPCG(uint64(s.seed), uint64(s.seed)^0x5eed))
	now := clock()

	logger.Warn("Seeding database: existing data will be removed", logger.F("seed", s.seed))
	if err := s.store.Reset(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to clear data")
	}

	hash, err := auth.HashPassword(SeedPassword)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, len(seedUsers))
	for i, name := range seedUsers {
		users[i] = model.User{
			Name:         name,
			Email:        fmt.Sprintf("user%d@example.com", i+1),
			PasswordHash: hash,
			Role:         model.RoleMember,
		}
		if i == 0 {
			users[i].Role = model.RoleAdmin
		}
		if err := s.store.CreateUser(ctx, &users[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to create user %s", users[i].Email)
		}
	}

	sum := &SeedSummary{Users: len(users), Password: SeedPassword}
	for i, tmpl := range seedProjects {
		owner := users[rng.IntN(len(users))]
		members := pickMembers(rng, users, owner.ID, 1+rng.IntN(4))

		p := &model.Project{
			Name:        tmpl.name,
			Description: tmpl.description,
			Status:      tmpl.status,
			OwnerID:     owner.ID,
			MemberIDs:   members,
			Color:       tmpl.color,
			CreatedAt:   now.Add(time.Duration(i-len(seedProjects)) * time.Hour),
		}
		if err := s.store.CreateProject(ctx, p); err != nil {
			return nil, errors.Wrapf(err, "failed to create project %s", p.Name)
		}
		sum.Projects++

		people := append([]string{owner.ID}, members...)
		count := 3 + rng.IntN(8)
		for j := 0; j < count; j++ {
			t := seedTask(rng, p, people, now)
			t.Order = j
			if err := s.store.CreateTask(ctx, &t); err != nil {
				return nil, errors.Wrapf(err, "failed to create task in %s", p.Name)
			}
			sum.Tasks++
		}
	}

	logger.Info("Database seeded",
		logger.F("users", sum.Users),
		logger.F("projects", sum.Projects),
		logger.F("tasks", sum.Tasks))
	return sum, nil
}

// pickMembers chooses n distinct users other than the owner
func pickMembers(rng *rand.Rand, users []model.User, ownerID string, n int) []string {
	var pool []string
	for _, u := range users {
		if u.ID != ownerID {
			pool = append(pool, u.ID)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

func seedTask(rng *rand.Rand, p *model.Project, people []string, now time.Time) model.Task {
	tmpl := seedTasks[rng.IntN(len(seedTasks))]
	t := model.NewTask("", tmpl.title, p.OwnerID)
	t.Description = fmt.Sprintf("Task description for %s in %s", tmpl.title, p.Name)
	t.Status = tmpl.status
	t.Priority = tmpl.priority
	t.ProjectID = p.ID
	t.CreatedAt = now.Add(-time.Duration(rng.IntN(14*24)) * time.Hour)
	t.UpdatedAt = t.CreatedAt

	if rng.Float64() > 0.3 {
		t.AssignedTo = people[rng.IntN(len(people))]
	}
	if rng.Float64() > 0.5 {
		due := now.AddDate(0, 0, rng.IntN(30)-10)
		t.DueDate = &due
	}
	if rng.Float64() > 0.4 {
		t.Labels = []string{seedLabels[rng.IntN(len(seedLabels))]}
	}
	if t.IsDone() {
		t.UpdatedAt = now.Add(-time.Duration(rng.IntN(6*24)) * time.Hour)
		if t.UpdatedAt.Before(t.CreatedAt) {
			t.UpdatedAt = t.CreatedAt
		}
	}
	return t
}
