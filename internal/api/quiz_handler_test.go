package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

type quizFixture struct {
	handler  *QuizHandler
	enqueuer *fakeEnqueuer
	db       *gorm.DB
	course   database.Course
	quiz     database.Quiz
	correct  map[uint]uint
	wrong    map[uint]uint
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	db := newTestDB(t)
	f := &quizFixture{
		enqueuer: &fakeEnqueuer{},
		db:       db,
		correct:  map[uint]uint{},
		wrong:    map[uint]uint{},
	}
	f.handler = NewQuizHandler(db, f.enqueuer, nil)

	f.course = database.Course{Title: "Go Fundamentals", Instructor: "R. Pike"}
	if err := db.Create(&f.course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	topic := database.Topic{CourseID: f.course.ID, Title: "Concurrency"}
	if err := db.Create(&topic).Error; err != nil {
		t.Fatalf("seed topic: %v", err)
	}

	f.quiz = database.Quiz{
		TopicID: topic.ID,
		Title:   "Final Quiz",
		Questions: []database.Question{
			{Text: "Q1", Answers: []database.Answer{{Text: "right", IsCorrect: true}, {Text: "wrong"}}},
			{Text: "Q2", Answers: []database.Answer{{Text: "right", IsCorrect: true}, {Text: "wrong"}}},
		},
	}
	if err := db.Create(&f.quiz).Error; err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	for _, q := range f.quiz.Questions {
		for _, a := range q.Answers {
			if a.IsCorrect {
				f.correct[q.ID] = a.ID
			} else {
				f.wrong[q.ID] = a.ID
			}
		}
	}
	return f
}

func (f *quizFixture) router(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(userID, database.RoleUser))
	router.GET("/v1/quizzes/:id/take", f.handler.TakeQuiz)
	router.POST("/v1/quizzes/:id/submit", f.handler.SubmitQuiz)
	return router
}

func (f *quizFixture) submission(pass bool) gin.H {
	answers := make([]gin.H, 0, len(f.correct))
	for questionID, answerID := range f.correct {
		if !pass {
			answerID = f.wrong[questionID]
		}
		answers = append(answers, gin.H{"questionId": questionID, "answerId": answerID})
	}
	return gin.H{"answers": answers}
}

func TestTakeQuizHidesCorrectFlags(t *testing.T) {
	f := newQuizFixture(t)
	router := f.router(1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/quizzes/"+itoa(f.quiz.ID)+"/take", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if strings.Contains(strings.ToLower(body), "iscorrect") {
		t.Fatalf("response leaks correctness flags: %s", body)
	}
	if !strings.Contains(body, "Q1") || !strings.Contains(body, "Q2") {
		t.Fatalf("response misses questions: %s", body)
	}
}

func TestSubmitQuizPassIssuesCertificateOnce(t *testing.T) {
	f := newQuizFixture(t)
	userID := uint(5)
	if err := f.db.Create(&database.User{Model: gorm.Model{ID: userID}, Email: "q@example.com"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	router := f.router(userID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost,
		"/v1/quizzes/"+itoa(f.quiz.ID)+"/submit", f.submission(true)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var certificates []database.Certificate
	if err := f.db.Where("user_id = ?", userID).Find(&certificates).Error; err != nil {
		t.Fatalf("load certificates: %v", err)
	}
	if len(certificates) != 1 {
		t.Fatalf("certificates = %d, want 1", len(certificates))
	}
	if certificates[0].CourseID != f.course.ID {
		t.Fatalf("certificate course = %d, want %d", certificates[0].CourseID, f.course.ID)
	}
	if certificates[0].SerialNumber == "" {
		t.Fatal("certificate has no serial number")
	}
	if len(f.enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued tasks = %d, want 1", len(f.enqueuer.enqueued))
	}

	// A repeat pass keeps the existing certificate and enqueues nothing new.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost,
		"/v1/quizzes/"+itoa(f.quiz.ID)+"/submit", f.submission(true)))
	if w.Code != http.StatusOK {
		t.Fatalf("repeat status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := f.db.Model(&database.Certificate{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count certificates: %v", err)
	}
	if count != 1 {
		t.Fatalf("certificates after repeat = %d, want 1", count)
	}
	if len(f.enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued tasks after repeat = %d, want 1", len(f.enqueuer.enqueued))
	}

	var submissions int64
	if err := f.db.Model(&database.QuizSubmission{}).Where("user_id = ?", userID).Count(&submissions).Error; err != nil {
		t.Fatalf("count submissions: %v", err)
	}
	if submissions != 2 {
		t.Fatalf("submissions = %d, want 2", submissions)
	}
}

func TestSubmitQuizFailIssuesNothing(t *testing.T) {
	f := newQuizFixture(t)
	router := f.router(9)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost,
		"/v1/quizzes/"+itoa(f.quiz.ID)+"/submit", f.submission(false)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var certificates int64
	if err := f.db.Model(&database.Certificate{}).Count(&certificates).Error; err != nil {
		t.Fatalf("count certificates: %v", err)
	}
	if certificates != 0 {
		t.Fatalf("certificates = %d, want 0", certificates)
	}
	if len(f.enqueuer.enqueued) != 0 {
		t.Fatalf("enqueued tasks = %d, want 0", len(f.enqueuer.enqueued))
	}

	var submission database.QuizSubmission
	if err := f.db.Where("user_id = ?", 9).First(&submission).Error; err != nil {
		t.Fatalf("load submission: %v", err)
	}
	if submission.Passed {
		t.Fatal("submission recorded as passed")
	}
	if submission.Score != 0 {
		t.Fatalf("score = %v, want 0", submission.Score)
	}
}

func TestSubmitQuizMissing(t *testing.T) {
	f := newQuizFixture(t)
	router := f.router(1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/quizzes/999/submit", gin.H{
		"answers": []gin.H{},
	}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body=%s", w.Code, w.Body.String())
	}
}
