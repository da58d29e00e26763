package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/quiz"
	"github.com/i474232898/warming-map/internal/session"
)

type sessionView struct {
	session.State
	QuizResult quiz.Result `json:"quiz_result"`
}

type clickResponse struct {
	Session    sessionView    `json:"session"`
	Recognized bool           `json:"recognized"`
	Point      *pointResponse `json:"point,omitempty"`
}

type quizView struct {
	Started  bool           `json:"started"`
	Finished bool           `json:"finished"`
	Index    int            `json:"index"`
	Answered bool           `json:"answered"`
	Question *quiz.Question `json:"question,omitempty"`
	Last     *quiz.Feedback `json:"last_feedback,omitempty"`
	Result   quiz.Result    `json:"result"`
	Counts   []int          `json:"counts"`
}

type quizStartRequest struct {
	Count int `json:"count" validate:"required,oneof=5 10 15"`
}

type quizAnswerRequest struct {
	Option string `json:"option" validate:"required,len=1"`
}

func newSessionView(st session.State) sessionView {
	return sessionView{State: st, QuizResult: st.Quiz.Result()}
}

func newQuizView(qs quiz.Session) quizView {
	v := quizView{
		Started:  qs.Started(),
		Finished: qs.Finished(),
		Index:    qs.Index,
		Answered: qs.Answered,
		Last:     qs.Last,
		Result:   qs.Result(),
		Counts:   quiz.Counts,
	}
	if q, err := qs.Current(); err == nil {
		v.Question = &q
	}
	return v
}

func (h *handlers) createSession(c *fiber.Ctx) error {
	st := h.Sessions.New()
	h.Metrics.SessionsActive.Set(float64(h.Sessions.Len()))
	return c.Status(fiber.StatusCreated).JSON(newSessionView(st))
}

func (h *handlers) getSession(c *fiber.Ctx) error {
	st, err := h.Sessions.Get(c.Params("id"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(newSessionView(st))
}

// sessionClick records a map click. The selector and year query parameters,
// when present, change what the session is looking at. An unrecognised
// payload leaves the previous click in place.
func (h *handlers) sessionClick(c *fiber.Ctx) error {
	var sel *climate.Selector
	if raw := c.Query("selector"); raw != "" {
		s, err := climate.ParseSelector(raw)
		if err != nil {
			return badRequest(err)
		}
		sel = &s
	}
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "year must be an integer")
		}
		year = y
	}
	click, recognized := h.parseClick(c.Body())

	st, err := h.Sessions.Update(c.Params("id"), func(st *session.State) error {
		if sel != nil {
			st.Selector = *sel
		}
		if year != 0 {
			st.Year = year
		}
		if recognized {
			st.Click = &click
		}
		return nil
	})
	if err != nil {
		return h.httpError(err)
	}

	resp := clickResponse{Session: newSessionView(st), Recognized: recognized}
	if st.Click != nil {
		p, err := h.pointSeries(c.UserContext(), st.Selector, *st.Click, 0, 0)
		if err != nil {
			return err
		}
		resp.Point = &p
	}
	return c.JSON(resp)
}

func (h *handlers) quizStart(c *fiber.Ctx) error {
	var req quizStartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err)
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(err)
	}

	st, err := h.Sessions.Update(c.Params("id"), func(st *session.State) error {
		h.rngMu.Lock()
		defer h.rngMu.Unlock()
		return st.Quiz.Start(h.Bank, req.Count, h.Rand)
	})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(newQuizView(st.Quiz))
}

func (h *handlers) quizState(c *fiber.Ctx) error {
	st, err := h.Sessions.Get(c.Params("id"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(newQuizView(st.Quiz))
}

func (h *handlers) quizAnswer(c *fiber.Ctx) error {
	var req quizAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err)
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(err)
	}

	var fb quiz.Feedback
	st, err := h.Sessions.Update(c.Params("id"), func(st *session.State) error {
		var err error
		fb, err = st.Quiz.Submit(req.Option)
		return err
	})
	if err != nil {
		return h.httpError(err)
	}
	h.Metrics.QuizAnswers.WithLabelValues(strconv.FormatBool(fb.Correct)).Inc()
	return c.JSON(fiber.Map{
		"feedback": fb,
		"quiz":     newQuizView(st.Quiz),
	})
}

func (h *handlers) quizNext(c *fiber.Ctx) error {
	st, err := h.Sessions.Update(c.Params("id"), func(st *session.State) error {
		return st.Quiz.Next()
	})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(newQuizView(st.Quiz))
}

func (h *handlers) quizReset(c *fiber.Ctx) error {
	st, err := h.Sessions.Update(c.Params("id"), func(st *session.State) error {
		st.Quiz.Reset()
		return nil
	})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(newQuizView(st.Quiz))
}
