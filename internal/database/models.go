package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roles recognized by the authorization layer.
const (
	RoleUser  = "user"
	RoleHR    = "hr"
	RoleAdmin = "admin"
)

// Application status values. HR may move a candidate through the funnel;
// the strings are stored as-is.
const (
	StatusApplied      = "Applied"
	StatusInterviewing = "Interviewing"
	StatusAccepted     = "Accepted"
	StatusRejected     = "Rejected"
)

// User is an account. HR users belong to a company; regular users and admins do not.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;size:255"`
	Name         string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255"`
	Role         string `gorm:"size:16;default:user"`
	CompanyID    *uint  `gorm:"index"`
	Company      *Company
}

// Company owns job postings and employs HR users.
type Company struct {
	gorm.Model
	Name        string       `gorm:"uniqueIndex;size:255"`
	Description string       `gorm:"type:text"`
	Website     string       `gorm:"size:512"`
	Location    string       `gorm:"size:255"`
	LogoURL     string       `gorm:"size:512"`
	HRUsers     []User       `gorm:"foreignKey:CompanyID"`
	JobPostings []JobPosting `gorm:"constraint:OnDelete:CASCADE"`
}

// JobPosting (lowongan) is a vacancy published by a company.
type JobPosting struct {
	gorm.Model
	Title        string `gorm:"size:255"`
	Description  string `gorm:"type:text"`
	Location     string `gorm:"size:255"`
	JobType      string `gorm:"size:64"`
	SalaryRange  string `gorm:"size:128"`
	CompanyID    uint   `gorm:"index"`
	Company      Company
	Applications []Application `gorm:"foreignKey:JobPostingID;constraint:OnDelete:CASCADE"`
}

// Application (kandidat) links a user to a posting. The composite unique
// index is the guard against concurrent duplicate submissions.
type Application struct {
	gorm.Model
	UserID       uint   `gorm:"uniqueIndex:idx_applications_user_job"`
	JobPostingID uint   `gorm:"uniqueIndex:idx_applications_user_job"`
	ResumeURL    string `gorm:"size:512"`
	Status       string `gorm:"size:32;default:Applied"`
	CoverLetter  string `gorm:"type:text"`
	User         User
	JobPosting   JobPosting
}

// Category groups courses.
type Category struct {
	gorm.Model
	Name         string   `gorm:"size:255"`
	ThumbnailURL string   `gorm:"size:512"`
	Courses      []Course `gorm:"constraint:OnDelete:SET NULL"`
}

// Course (kursus) holds ordered topics and is the unit users enroll in.
type Course struct {
	gorm.Model
	Title        string `gorm:"size:255"`
	Description  string `gorm:"type:text"`
	Instructor   string `gorm:"size:255"`
	Duration     int
	LessonCount  int
	Rating       float64
	ThumbnailURL string `gorm:"size:512"`
	CategoryID   *uint  `gorm:"index"`
	Category     *Category
	Topics       []Topic      `gorm:"constraint:OnDelete:CASCADE"`
	Enrollments  []Enrollment `gorm:"constraint:OnDelete:CASCADE"`
}

// Enrollment links a user to a course, at most once per pair.
type Enrollment struct {
	gorm.Model
	UserID   uint `gorm:"uniqueIndex:idx_enrollments_user_course"`
	CourseID uint `gorm:"uniqueIndex:idx_enrollments_user_course"`
	User     User
	Course   Course
}

// Topic is a lesson inside a course, listed in creation order.
type Topic struct {
	gorm.Model
	CourseID uint   `gorm:"index"`
	Title    string `gorm:"size:255"`
	Content  string `gorm:"type:text"`
	VideoURL string `gorm:"size:512"`
	Quiz     *Quiz  `gorm:"constraint:OnDelete:CASCADE"`
}

// Quiz belongs to a topic.
type Quiz struct {
	gorm.Model
	TopicID   uint       `gorm:"index"`
	Title     string     `gorm:"size:255"`
	Questions []Question `gorm:"constraint:OnDelete:CASCADE"`
}

// Question carries its answer options; exactly one is flagged correct.
type Question struct {
	gorm.Model
	QuizID  uint     `gorm:"index"`
	Text    string   `gorm:"type:text"`
	Answers []Answer `gorm:"constraint:OnDelete:CASCADE"`
}

// Answer is one option of a question.
type Answer struct {
	gorm.Model
	QuestionID uint   `gorm:"index"`
	Text       string `gorm:"type:text"`
	IsCorrect  bool
}

// QuizSubmission records a graded attempt, keeping the submitted
// (questionId, answerId) pairs for audit.
type QuizSubmission struct {
	gorm.Model
	UserID  uint           `gorm:"index"`
	QuizID  uint           `gorm:"index"`
	Answers datatypes.JSON `gorm:"type:jsonb"`
	Score   float64
	Passed  bool
}

// Certificate is issued once per (user, course) on the first passing score.
type Certificate struct {
	gorm.Model
	UserID       uint   `gorm:"uniqueIndex:idx_certificates_user_course"`
	CourseID     uint   `gorm:"uniqueIndex:idx_certificates_user_course"`
	SerialNumber string `gorm:"uniqueIndex;size:64"`
	IssuedAt     time.Time
	FileURL      string `gorm:"size:512"`
	User         User
	Course       Course
}

// Community is a named group with a cover image.
type Community struct {
	gorm.Model
	Name          string `gorm:"uniqueIndex;size:255"`
	Description   string `gorm:"type:text"`
	CoverImageURL string `gorm:"size:512"`
}

// ForumThread is a discussion started by a user.
type ForumThread struct {
	gorm.Model
	Title    string `gorm:"size:255"`
	Content  string `gorm:"type:text"`
	AuthorID uint   `gorm:"index"`
	Author   User
	Posts    []ForumPost `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
}

// ForumPost is a reply inside a thread.
type ForumPost struct {
	gorm.Model
	ThreadID uint   `gorm:"index"`
	AuthorID uint   `gorm:"index"`
	Content  string `gorm:"type:text"`
	Author   User
}
