package models

// RoomType categorises teaching spaces.
type RoomType string

const (
	RoomClassroom   RoomType = "CLASSROOM"
	RoomLab         RoomType = "LAB"
	RoomSeminarHall RoomType = "SEMINAR_HALL"
	RoomAuditorium  RoomType = "AUDITORIUM"
)

// Room is a read-only teaching space description.
type Room struct {
	ID         string   `db:"id" json:"id"`
	Name       string   `db:"name" json:"name"`
	Type       RoomType `db:"type" json:"type"`
	Capacity   int      `db:"capacity" json:"capacity"`
	Facilities []string `json:"facilities"`
	Building   string   `db:"building" json:"building"`
}

// HasFacilities reports whether the room provides every required facility tag.
func (r Room) HasFacilities(required []string) bool {
	for _, tag := range required {
		found := false
		for _, have := range r.Facilities {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
