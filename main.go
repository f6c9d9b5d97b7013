// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/carewellhq/carewell/config"
	"github.com/carewellhq/carewell/endpoint"
	"github.com/carewellhq/carewell/geocode"
	"github.com/carewellhq/carewell/middleware"
	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/page"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Department{},
		&model.Doctor{},
		&model.Patient{},
		&model.Appointment{},
		&model.ContactMessage{},
		&model.Session{},
		&model.SecurityLog{},
	)
	if err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}

	util.SetSecurityLoggerDB(db)

	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, sessions fall back to the database: %v", err)
	}

	if cfg.SeedSampleData {
		if err := model.Seed(db); err != nil {
			log.Fatalf("Error seeding sample data: %v", err)
		}
	}

	geocodeService := geocode.NewService(geocode.Config{
		DefaultProvider: cfg.DefaultGeocodeProvider,
		GoogleAPIKey:    cfg.GoogleMapsAPIKey,
		UserAgent:       fmt.Sprintf("%s/1.0", cfg.AppName),
		CacheTTL:        24 * time.Hour,
	})
	endpoint.SetGeocodeService(geocodeService)

	pages := page.NewHandler(page.NewClient(fmt.Sprintf("http://127.0.0.1:%d", cfg.AppPort), 5*time.Second))

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.EndpointCallLogger())
	router.Use(middleware.DatabaseMiddleware(db))

	registerRoutes(router, pages, cfg.AppName)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

func registerRoutes(router *gin.Engine, pages *page.Handler, appName string) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", appName),
		})
	})

	// Presentation pages, always open
	router.GET("/home/", pages.Home)
	router.GET("/about/", pages.About)
	router.GET("/services/", pages.Services)
	router.GET("/contact/", pages.Contact)
	router.GET("/locations/", pages.Locations)
	router.POST("/contact/", endpoint.CreateContactMessage)

	// Authentication
	router.POST("/api/auth/token/", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.GetAuthToken)
	router.POST("/api/auth/refresh-token/", middleware.ValidateLoginToken(), endpoint.RefreshAuthToken)
	router.GET("/api/auth/user/", middleware.ValidateLoginToken(), endpoint.GetUserInfo)
	router.GET("/api/cors-test/", endpoint.CORSTest)

	// Departments, readable without auth
	router.GET("/api/departments/", endpoint.ListDepartments)
	router.GET("/api/departments/:id/", endpoint.GetDepartmentInfo)
	router.POST("/api/departments/", middleware.ValidateLoginToken(), endpoint.CreateDepartment)
	router.PATCH("/api/departments/:id/", middleware.ValidateLoginToken(), endpoint.UpdateDepartment)
	router.DELETE("/api/departments/:id/", middleware.ValidateLoginToken(), endpoint.DeleteDepartment)

	// Doctors, readable without auth
	router.GET("/api/doctors/", endpoint.ListDoctors)
	router.GET("/api/doctors/available/", endpoint.AvailableDoctors)
	router.GET("/api/doctors/by_specialization/", endpoint.DoctorsBySpecialization)
	router.GET("/api/doctors/:id/", endpoint.GetDoctorInfo)
	router.GET("/api/doctors/:id/appointments/", middleware.ValidateLoginToken(), endpoint.DoctorAppointments)
	router.POST("/api/doctors/", middleware.ValidateLoginToken(), endpoint.CreateDoctor)
	router.PATCH("/api/doctors/:id/", middleware.ValidateLoginToken(), endpoint.UpdateDoctor)
	router.DELETE("/api/doctors/:id/", middleware.ValidateLoginToken(), endpoint.DeleteDoctor)

	// Patients, auth only
	patients := router.Group("/api/patients", middleware.ValidateLoginToken())
	{
		patients.GET("/", endpoint.ListPatients)
		patients.GET("/:id/", endpoint.GetPatientInfo)
		patients.GET("/:id/appointments/", endpoint.PatientAppointments)
		patients.GET("/:id/medical_history/", endpoint.PatientMedicalHistory)
		patients.POST("/", endpoint.CreatePatient)
		patients.PATCH("/:id/", endpoint.UpdatePatient)
		patients.DELETE("/:id/", endpoint.DeletePatient)
	}

	// Appointments, auth only
	appointments := router.Group("/api/appointments", middleware.ValidateLoginToken())
	{
		appointments.GET("/", endpoint.ListAppointments)
		appointments.GET("/today/", endpoint.TodayAppointments)
		appointments.GET("/upcoming/", endpoint.UpcomingAppointments)
		appointments.GET("/by_status/", endpoint.AppointmentsByStatus)
		appointments.GET("/:id/", endpoint.GetAppointmentInfo)
		appointments.POST("/", endpoint.CreateAppointment)
		appointments.PATCH("/:id/", endpoint.UpdateAppointment)
		appointments.PATCH("/:id/update_status/", endpoint.UpdateAppointmentStatus)
		appointments.PATCH("/:id/add_prescription/", endpoint.AddPrescription)
		appointments.DELETE("/:id/", endpoint.DeleteAppointment)
	}

	// Contact messages: creation is open, triage requires auth
	router.POST("/api/contact-messages/", endpoint.CreateContactMessage)
	router.GET("/api/contact-messages/", middleware.ValidateLoginToken(), endpoint.ListContactMessages)
	router.GET("/api/contact-messages/unread/", middleware.ValidateLoginToken(), endpoint.UnreadContactMessages)
	router.PATCH("/api/contact-messages/:id/mark_read/", middleware.ValidateLoginToken(), endpoint.MarkContactMessageRead)

	// Geocoding: info is open, lookups and writes require auth
	router.GET("/api/geocode/info/", endpoint.GeocodingInfo)
	geocodeGroup := router.Group("/api/geocode", middleware.ValidateLoginToken())
	{
		geocodeGroup.POST("/address/", endpoint.GeocodeAddress)
		geocodeGroup.POST("/reverse/", endpoint.ReverseGeocode)
		geocodeGroup.POST("/doctor/update/", endpoint.UpdateDoctorCoordinates)
		geocodeGroup.POST("/patient/update/", endpoint.UpdatePatientCoordinates)
		geocodeGroup.POST("/bulk-update/", endpoint.BulkUpdateCoordinates)
	}
}
