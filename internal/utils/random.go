package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/crypto/bcrypt"

	"github.com/shift-marketplace/backend/internal/domain"
)

var commonSurnames = []string{
	"佐藤", "鈴木", "高橋", "田中", "伊藤", "山本", "中村", "小林", "加藤", "吉田",
	"山田", "佐々木", "松本", "井上", "木村", "林", "清水", "山口", "森", "池田",
}
var commonGivenNames = []string{
	"翔", "大輝", "陽菜", "結衣", "蓮", "美咲", "健太", "優花", "拓海", "葵",
	"直樹", "真央", "悠斗", "彩", "亮", "愛", "誠", "千尋", "剛", "花",
}

var qualifications = []string{"介護福祉士", "看護師", "初任者研修", "実務者研修", "准看護師"}

var prefectures = []string{"東京都", "神奈川県", "大阪府", "愛知県", "福岡県", "北海道"}

var jobTitles = []string{"デイサービス介助", "夜間見守り", "入浴介助", "送迎補助", "訪問介護", "病棟補助"}

func GenerateRandomName() string {
	return commonSurnames[rand.Intn(len(commonSurnames))] + commonGivenNames[rand.Intn(len(commonGivenNames))]
}

var digits = "0123456789"

// GenerateUsernameFromName は漢字の読みをローマ字にしてユーザー名を作る。読めない文字は捨てる
func GenerateUsernameFromName(name string) string {
	readings := pinyin.LazyConvert(name, nil)
	username := ""

	for _, reading := range readings {
		length := rand.Intn(len(reading)) + 1
		username += reading[:length]
	}
	if username == "" {
		username = "worker"
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomPhoneNumber() string {
	return fmt.Sprintf("090-%04d-%04d", rand.Intn(10000), rand.Intn(10000))
}

// GenerateRandomWorker は約 2 割の確率で資格を空にし、プロフィール未完成のワーカーを作る
func GenerateRandomWorker(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomName()
	username := GenerateUsernameFromName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	birthDate := time.Date(1960+rand.Intn(45), time.Month(rand.Intn(12)+1), rand.Intn(28)+1, 0, 0, 0, 0, time.UTC)
	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleWorker,
		PhoneNumber:  GenerateRandomPhoneNumber(),
		Address:      prefectures[rand.Intn(len(prefectures))],
		BirthDate:    &birthDate,
		IsActive:     true,
	}
	if rand.Intn(5) > 0 {
		user.Qualification = qualifications[rand.Intn(len(qualifications))]
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func GenerateRandomID(letterLength int, digitLength int) string {
	randomID := make([]rune, letterLength+digitLength)
	for i := range randomID {
		if i < letterLength {
			randomID[i] = letters[rand.Intn(len(letters))]
		} else {
			randomID[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(randomID)
}

func GenerateRandomFacility(ownerUserID int64) *domain.Facility {
	return &domain.Facility{
		Name:        "ケアセンター" + GenerateRandomID(3, 3),
		OwnerUserID: ownerUserID,
		Address:     prefectures[rand.Intn(len(prefectures))],
	}
}

// Fisher-Yates で空でないランダムな部分集合を作る。元のスライスは変更しない
func GenerateRandomSubset[T any](arr []T) []T {
	arrCopy := append([]T{}, arr...)

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rand.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	l := rand.Intn(len(arrCopy)) + 1
	return arrCopy[:l]
}

// GenerateRandomJob は from から days 日の間に勤務日を持つ求人を作る
func GenerateRandomJob(facilityID int64, from time.Time, days int) *domain.Job {
	startHour := rand.Intn(13) + 6 // 6~18 時
	duration := rand.Intn(7) + 2   // 2~8 時間
	endHour := min(startHour+duration, 23)

	job := &domain.Job{
		FacilityID:        facilityID,
		Title:             jobTitles[rand.Intn(len(jobTitles))],
		JobType:           domain.JobTypeNormal,
		StartTime:         fmt.Sprintf("%02d:%02d", startHour, rand.Intn(2)*30),
		EndTime:           fmt.Sprintf("%02d:00", endHour),
		RecruitmentCount:  int32(rand.Intn(3) + 1),
		RequiresInterview: rand.Intn(4) == 0,
	}
	if rand.Intn(3) == 0 {
		freq := int32(rand.Intn(2) + 1)
		job.WeeklyFrequency = &freq
	}

	offsets := make([]int, days)
	for i := range offsets {
		offsets[i] = i
	}
	selected := GenerateRandomSubset(offsets)
	seen := make(map[string]bool)
	for _, offset := range selected {
		date := from.AddDate(0, 0, offset).Format(time.DateOnly)
		if seen[date] {
			continue
		}
		seen[date] = true
		job.WorkDates = append(job.WorkDates, domain.WorkDateSlot{WorkDate: date})
	}

	return job
}
