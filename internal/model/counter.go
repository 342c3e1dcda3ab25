package model

// TodayCounter assigns a serving number to a completed request. A row is
// appended each time a request is verified; its autoincrement id is the
// number shown on the counter display.
type TodayCounter struct {
	ID        int      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID int      `gorm:"index;not null" json:"request_id"`
	Request   *Request `gorm:"foreignKey:RequestID" json:"-"`
}
