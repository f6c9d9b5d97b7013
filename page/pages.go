package page

import (
	"github.com/carewellhq/carewell/middleware"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
)

// Handler serves the presentation pages. Each page composes read endpoints
// through the internal client and substitutes static marketing content when
// the API is unreachable, so pages always render.
type Handler struct {
	client *Client
}

// NewHandler returns a page handler backed by the given client.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

var fallbackDepartments = []map[string]interface{}{
	{"name": "Cardiology", "description": "Heart and vascular care."},
	{"name": "Neurology", "description": "Brain and nervous system care."},
	{"name": "Pediatrics", "description": "Care for infants, children, and adolescents."},
	{"name": "Orthopedics", "description": "Bone, joint, and muscle care."},
	{"name": "General Medicine", "description": "Primary and preventive care."},
}

var fallbackDoctors = []map[string]interface{}{
	{"name": "Dr. Emily Johnson", "specialization": "cardiology", "is_available": true},
	{"name": "Dr. Michael Davis", "specialization": "pediatrics", "is_available": true},
}

var fallbackServices = []map[string]interface{}{
	{"name": "Outpatient consultations", "description": "Same-week appointments across all departments."},
	{"name": "Diagnostic imaging", "description": "On-site X-ray, ultrasound, and MRI."},
	{"name": "Laboratory", "description": "Full blood panel and pathology services."},
	{"name": "Emergency care", "description": "Walk-in urgent care during opening hours."},
}

var contactDetails = map[string]interface{}{
	"address": "12 Harbour View Road, Wellness Park",
	"phone":   "+1 555 0132",
	"email":   "hello@carewell.example",
	"hours":   "Mon-Sat 08:00-20:00",
}

// fetchSection pulls one read endpoint and extracts the named collection.
// ok is false when the call failed or came back empty.
func (h *Handler) fetchSection(c *gin.Context, path, key string) ([]interface{}, bool) {
	token := middleware.BearerToken(c)
	data, err := h.client.Get(c.Request.Context(), path, token)
	if err != nil {
		return nil, false
	}
	items, ok := data[key].([]interface{})
	if !ok || len(items) == 0 {
		return nil, false
	}
	return items, true
}

func renderPage(c *gin.Context, title string, sections map[string]interface{}, fallback bool) {
	payload := map[string]interface{}{
		"title":    title,
		"fallback": fallback,
	}
	for k, v := range sections {
		payload[k] = v
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Page rendered",
		Data: payload,
	})
}

// Home shows the department list and currently available doctors.
func (h *Handler) Home(c *gin.Context) {
	fallback := false

	departments, ok := h.fetchSection(c, "/api/departments/", "departments")
	if !ok {
		departments = toInterfaceSlice(fallbackDepartments)
		fallback = true
	}
	doctors, ok := h.fetchSection(c, "/api/doctors/available/", "doctors")
	if !ok {
		doctors = toInterfaceSlice(fallbackDoctors)
		fallback = true
	}

	renderPage(c, "CareWell Hospital", map[string]interface{}{
		"departments": departments,
		"doctors":     doctors,
	}, fallback)
}

// About shows the hospital profile with live department counts when the
// API responds.
func (h *Handler) About(c *gin.Context) {
	fallback := false

	departments, ok := h.fetchSection(c, "/api/departments/", "departments")
	if !ok {
		departments = toInterfaceSlice(fallbackDepartments)
		fallback = true
	}

	renderPage(c, "About CareWell", map[string]interface{}{
		"mission":     "Accessible, specialist-led care for the whole community.",
		"departments": departments,
	}, fallback)
}

// Services lists the service catalog grouped by department.
func (h *Handler) Services(c *gin.Context) {
	fallback := false

	departments, ok := h.fetchSection(c, "/api/departments/", "departments")
	if !ok {
		departments = toInterfaceSlice(fallbackDepartments)
		fallback = true
	}

	renderPage(c, "Our Services", map[string]interface{}{
		"services":    toInterfaceSlice(fallbackServices),
		"departments": departments,
	}, fallback)
}

// Contact shows the clinic's contact details. Form submissions post to the
// open contact-message endpoint.
func (h *Handler) Contact(c *gin.Context) {
	renderPage(c, "Contact Us", map[string]interface{}{
		"contact":   contactDetails,
		"form_post": "/api/contact-messages/",
	}, false)
}

// Locations lists doctors so visitors can find practitioners near them.
// Coordinates appear once the geocoding flows have populated them.
func (h *Handler) Locations(c *gin.Context) {
	fallback := false

	doctors, ok := h.fetchSection(c, "/api/doctors/", "doctors")
	if !ok {
		doctors = toInterfaceSlice(fallbackDoctors)
		fallback = true
	}

	renderPage(c, "Find a Doctor", map[string]interface{}{
		"doctors": doctors,
		"contact": contactDetails,
	}, fallback)
}

func toInterfaceSlice(items []map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
