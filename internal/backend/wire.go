package backend

import "github.com/matheus3301/drv/internal/domain"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success *bool      `json:"success"`
	Message string     `json:"message"`
	User    *loginUser `json:"user"`
}

type loginUser struct {
	ID    domain.ID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (u *loginUser) displayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type ordersResponse struct {
	Orders []order `json:"orders"`
}

// order mirrors the backend's order object. Coordinates arrive as strings
// or numbers.
type order struct {
	ID            domain.ID `json:"id"`
	DriverStatus  string    `json:"driver_status"`
	StaffName     string    `json:"staff_name"`
	TimeSlotValue string    `json:"time_slot_value"`
	Latitude      domain.ID `json:"latitude"`
	Longitude     domain.ID `json:"longitude"`
	Address       string    `json:"address"`
	StaffPhone    string    `json:"staff_phone"`
	StaffWhatsApp string    `json:"staff_whatsapp"`
	City          string    `json:"city"`
	District      string    `json:"district"`
	BuildingName  string    `json:"buildingName"`
	FlatVilla     string    `json:"flatVilla"`
	Street        string    `json:"street"`
}

func (o order) domain() domain.Order {
	return domain.Order{
		ID:           o.ID,
		DriverStatus: o.DriverStatus,
		CustomerName: o.StaffName,
		TimeSlot:     o.TimeSlotValue,
		Address:      o.Address,
		City:         o.City,
		District:     o.District,
		Building:     o.BuildingName,
		FlatVilla:    o.FlatVilla,
		Street:       o.Street,
		Phone:        o.StaffPhone,
		WhatsApp:     o.StaffWhatsApp,
		Latitude:     o.Latitude.String(),
		Longitude:    o.Longitude.String(),
	}
}

type chatMessage struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type chatRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
	Type   string `json:"type"`
}

type resultResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}
