package scheduling

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cliniq/cliniq/internal/platform/auth"
	"github.com/cliniq/cliniq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the scheduling endpoints onto the authenticated group.
func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.GET("/availability", h.CheckAvailability)

	authed.POST("/appointments/book", h.BookAppointment)
	authed.POST("/appointments", h.CreateAppointment)
	authed.GET("/appointments", h.ListAppointments)
	authed.GET("/appointments/:id", h.GetAppointment)
	authed.PUT("/appointments/:id", h.UpdateAppointment)
	authed.DELETE("/appointments/:id", h.CancelAppointment)

	authed.GET("/working-hours", h.ListWorkingHours)
	staff := authed.Group("", auth.RequireRole("doctor"))
	staff.POST("/working-hours", h.AddWorkingHour)
	staff.DELETE("/working-hours/:id", h.DeleteWorkingHour)
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTimeFormat),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidDay),
		errors.Is(err, ErrOverlapConflict),
		errors.Is(err, ErrDuplicateAppointment),
		errors.Is(err, ErrPastAppointment):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) CheckAvailability(c echo.Context) error {
	username := c.QueryParam("username")
	date := c.QueryParam("date")
	timeStr := c.QueryParam("time")
	if username == "" || date == "" || timeStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, date and time are required")
	}

	result, err := h.svc.CheckAvailability(c.Request().Context(), username, date, timeStr)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type bookRequest struct {
	DoctorUsername  string `json:"doctor_username" query:"doctor_username"`
	PatientUsername string `json:"patient_username" query:"patient_username"`
	Date            string `json:"date" query:"date"`
	Time            string `json:"time" query:"time"`
}

func (h *Handler) BookAppointment(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Bind skips query params on POST; accept them for parity with the
	// availability check.
	if req.DoctorUsername == "" {
		req.DoctorUsername = c.QueryParam("doctor_username")
	}
	if req.PatientUsername == "" {
		req.PatientUsername = c.QueryParam("patient_username")
	}
	if req.Date == "" {
		req.Date = c.QueryParam("date")
	}
	if req.Time == "" {
		req.Time = c.QueryParam("time")
	}
	if req.DoctorUsername == "" || req.PatientUsername == "" || req.Date == "" || req.Time == "" {
		return echo.NewHTTPError(http.StatusBadRequest,
			"doctor_username, patient_username, date and time are required")
	}

	appt, err := h.svc.BookAppointment(c.Request().Context(),
		req.DoctorUsername, req.PatientUsername, req.Date, req.Time)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

type createAppointmentRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	DateTime  time.Time `json:"date_time"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == uuid.Nil || req.PatientID == uuid.Nil || req.DateTime.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest,
			"doctor_id, patient_id and date_time are required")
	}

	appt, err := h.svc.CreateAppointment(c.Request().Context(), req.DoctorID, req.PatientID, req.DateTime)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	appts, total, err := h.svc.ListAppointments(c.Request().Context(),
		c.QueryParam("doctor"), c.QueryParam("patient"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var params UpdateAppointmentParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.UpdateAppointment(c.Request().Context(), id, params)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.CancelAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

type addWorkingHourRequest struct {
	DoctorUsername string    `json:"doctor_username"`
	DayOfWeek      int       `json:"day_of_week"`
	StartTime      TimeOfDay `json:"start_time"`
	EndTime        TimeOfDay `json:"end_time"`
}

func (h *Handler) AddWorkingHour(c echo.Context) error {
	var req addWorkingHourRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorUsername == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_username is required")
	}

	w, err := h.svc.AddWorkingHour(c.Request().Context(),
		req.DoctorUsername, req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWorkingHours(c echo.Context) error {
	doctor := c.QueryParam("doctor")
	if doctor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor is required")
	}
	hours, err := h.svc.ListWorkingHours(c.Request().Context(), doctor)
	if err != nil {
		return httpError(err)
	}
	if hours == nil {
		hours = []*WorkingHour{}
	}
	return c.JSON(http.StatusOK, hours)
}

func (h *Handler) DeleteWorkingHour(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteWorkingHour(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "working hour deleted"})
}
