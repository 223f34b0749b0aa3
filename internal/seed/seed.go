// Package seed は開発用のデータを投入する。YAML のフィクスチャとランダム生成の 2 通りがある
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/utils"
)

//go:embed fixtures/*.yaml
var fixturesFS embed.FS

type Store interface {
	CreateUser(ctx context.Context, user *domain.User) error
	CreateFacility(ctx context.Context, facility *domain.Facility) error
	CreateJob(ctx context.Context, job *domain.Job) error
	InsertApplications(ctx context.Context, userID int64, job *domain.Job, workDateIDs []int64) ([]domain.Application, error)
}

type FixtureUser struct {
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	FullName      string `yaml:"fullName"`
	Role          string `yaml:"role"`
	PhoneNumber   string `yaml:"phoneNumber"`
	Address       string `yaml:"address"`
	BirthDate     string `yaml:"birthDate"`
	Qualification string `yaml:"qualification"`
}

type FixtureFacility struct {
	Name    string `yaml:"name"`
	Owner   string `yaml:"owner"`
	Address string `yaml:"address"`
}

type FixtureWorkDate struct {
	Date             string `yaml:"date"`
	RecruitmentCount int32  `yaml:"recruitmentCount"`
}

type FixtureJob struct {
	Key               string            `yaml:"key"`
	Facility          string            `yaml:"facility"`
	Title             string            `yaml:"title"`
	JobType           string            `yaml:"jobType"`
	StartTime         string            `yaml:"startTime"`
	EndTime           string            `yaml:"endTime"`
	RecruitmentCount  int32             `yaml:"recruitmentCount"`
	RequiresInterview bool              `yaml:"requiresInterview"`
	WeeklyFrequency   *int32            `yaml:"weeklyFrequency"`
	WorkDates         []FixtureWorkDate `yaml:"workDates"`
}

type FixtureApplication struct {
	User  string   `yaml:"user"`
	Job   string   `yaml:"job"`
	Dates []string `yaml:"dates"`
}

type Fixture struct {
	Users        []FixtureUser        `yaml:"users"`
	Facilities   []FixtureFacility    `yaml:"facilities"`
	Jobs         []FixtureJob         `yaml:"jobs"`
	Applications []FixtureApplication `yaml:"applications"`
}

// ParseFixture は未知のキーをエラーにする
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// DemoFixture は同梱のデモデータを返す
func DemoFixture() (*Fixture, error) {
	file, err := fixturesFS.Open("fixtures/demo.yaml")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseFixture(file)
}

type Seeder struct {
	store           Store
	logger          *zap.Logger
	defaultPassword string
	emailDomain     string
}

func NewSeeder(store Store, logger *zap.Logger, defaultPassword, emailDomain string) *Seeder {
	return &Seeder{
		store:           store,
		logger:          logger,
		defaultPassword: defaultPassword,
		emailDomain:     emailDomain,
	}
}

// Result はフィクスチャで作成したデータの ID
type Result struct {
	Users      map[string]int64
	Facilities map[string]int64
	Jobs       map[string]*domain.Job
}

// ApplyFixture はフィクスチャを記載順に投入する。参照先が見つからない場合はその時点で止める
func (s *Seeder) ApplyFixture(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{
		Users:      make(map[string]int64),
		Facilities: make(map[string]int64),
		Jobs:       make(map[string]*domain.Job),
	}

	for _, fu := range f.Users {
		user, err := s.fixtureUser(fu)
		if err != nil {
			return res, err
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return res, fmt.Errorf("failed to create user %s: %w", fu.Username, err)
		}
		res.Users[fu.Username] = user.ID
	}

	for _, ff := range f.Facilities {
		ownerID, ok := res.Users[ff.Owner]
		if !ok {
			return res, fmt.Errorf("facility %s: unknown owner %q", ff.Name, ff.Owner)
		}
		facility := &domain.Facility{Name: ff.Name, OwnerUserID: ownerID, Address: ff.Address}
		if err := s.store.CreateFacility(ctx, facility); err != nil {
			return res, fmt.Errorf("failed to create facility %s: %w", ff.Name, err)
		}
		res.Facilities[ff.Name] = facility.ID
	}

	for _, fj := range f.Jobs {
		facilityID, ok := res.Facilities[fj.Facility]
		if !ok {
			return res, fmt.Errorf("job %s: unknown facility %q", fj.Key, fj.Facility)
		}
		job := &domain.Job{
			FacilityID:        facilityID,
			Title:             fj.Title,
			JobType:           domain.JobType(fj.JobType),
			StartTime:         fj.StartTime,
			EndTime:           fj.EndTime,
			RecruitmentCount:  fj.RecruitmentCount,
			RequiresInterview: fj.RequiresInterview,
			WeeklyFrequency:   fj.WeeklyFrequency,
		}
		if job.JobType == "" {
			job.JobType = domain.JobTypeNormal
		}
		for _, wd := range fj.WorkDates {
			job.WorkDates = append(job.WorkDates, domain.WorkDateSlot{WorkDate: wd.Date, RecruitmentCount: wd.RecruitmentCount})
		}
		if err := utils.ValidateJobTime(job); err != nil {
			return res, fmt.Errorf("job %s: %w", fj.Key, err)
		}
		if err := utils.ValidateWorkDates(job.WorkDates); err != nil {
			return res, fmt.Errorf("job %s: %w", fj.Key, err)
		}
		if err := s.store.CreateJob(ctx, job); err != nil {
			return res, fmt.Errorf("failed to create job %s: %w", fj.Key, err)
		}
		res.Jobs[fj.Key] = job
	}

	for _, fa := range f.Applications {
		userID, ok := res.Users[fa.User]
		if !ok {
			return res, fmt.Errorf("application: unknown user %q", fa.User)
		}
		job, ok := res.Jobs[fa.Job]
		if !ok {
			return res, fmt.Errorf("application: unknown job %q", fa.Job)
		}
		ids, err := workDateIDs(job, fa.Dates)
		if err != nil {
			return res, err
		}
		if _, err := s.store.InsertApplications(ctx, userID, job, ids); err != nil {
			return res, fmt.Errorf("failed to apply %s to %s: %w", fa.User, fa.Job, err)
		}
	}

	s.logger.Info("フィクスチャを投入しました",
		zap.Int("users", len(res.Users)),
		zap.Int("facilities", len(res.Facilities)),
		zap.Int("jobs", len(res.Jobs)),
		zap.Int("applications", len(f.Applications)),
	)
	return res, nil
}

func (s *Seeder) fixtureUser(fu FixtureUser) (*domain.User, error) {
	password := fu.Password
	if password == "" {
		password = s.defaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := domain.Role(fu.Role)
	switch role {
	case domain.RoleWorker, domain.RoleFacility, domain.RoleAdmin:
	case "":
		role = domain.RoleWorker
	default:
		return nil, fmt.Errorf("user %s: unknown role %q", fu.Username, fu.Role)
	}

	user := &domain.User{
		Username:      fu.Username,
		PasswordHash:  string(hash),
		FullName:      fu.FullName,
		Email:         fu.Username + "@" + s.emailDomain,
		Role:          role,
		PhoneNumber:   fu.PhoneNumber,
		Address:       fu.Address,
		Qualification: fu.Qualification,
		IsActive:      true,
	}
	if fu.BirthDate != "" {
		birthDate, err := time.Parse(time.DateOnly, fu.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("user %s: invalid birthDate: %w", fu.Username, err)
		}
		user.BirthDate = &birthDate
	}
	return user, nil
}

func workDateIDs(job *domain.Job, dates []string) ([]int64, error) {
	ids := make([]int64, 0, len(dates))
	for _, date := range dates {
		found := false
		for _, wd := range job.WorkDates {
			if wd.WorkDate == date {
				ids = append(ids, wd.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("job %s has no work date %s", job.Title, date)
		}
	}
	return ids, nil
}

// RandomWorkers は n 人のランダムなワーカーを作成し、作成できた人数を返す。
// 1 人ずつの失敗はログに残して続行する
func (s *Seeder) RandomWorkers(ctx context.Context, n int) int {
	created := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomWorker(s.defaultPassword, s.emailDomain)
		if err != nil {
			s.logger.Error("ランダムなワーカーを生成できません", zap.Error(err))
			continue
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			s.logger.Error("ワーカーを作成できません", zap.Error(err), zap.String("username", user.Username))
			continue
		}
		created++
	}
	return created
}

// RandomFacilities は ownerUserID が担当する施設を n 件作成し、作成した施設の ID を返す
func (s *Seeder) RandomFacilities(ctx context.Context, n int, ownerUserID int64) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		facility := utils.GenerateRandomFacility(ownerUserID)
		if err := s.store.CreateFacility(ctx, facility); err != nil {
			s.logger.Error("施設を作成できません", zap.Error(err), zap.String("name", facility.Name))
			continue
		}
		ids = append(ids, facility.ID)
	}
	return ids
}

// RandomJobs は施設ごとに n 件、from から days 日の範囲に勤務日を持つ求人を作成する
func (s *Seeder) RandomJobs(ctx context.Context, facilityIDs []int64, n int, from time.Time, days int) int {
	created := 0
	for _, facilityID := range facilityIDs {
		for i := 0; i < n; i++ {
			job := utils.GenerateRandomJob(facilityID, from, days)
			if err := s.store.CreateJob(ctx, job); err != nil {
				s.logger.Error("求人を作成できません", zap.Error(err), zap.Int64("facility_id", facilityID))
				continue
			}
			created++
		}
	}
	return created
}
