package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadPurpose says what an uploaded object is for.
type UploadPurpose string

const (
	UploadHorsePhoto       UploadPurpose = "horse_photo"
	UploadHealthAttachment UploadPurpose = "health_attachment"
	UploadSpreadsheet      UploadPurpose = "spreadsheet" // Raw programme CSV as authored
)

// Upload stores metadata about a file uploaded by a user.
// The actual file resides in S3.
type Upload struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UploaderID  primitive.ObjectID  `bson:"uploaderId" json:"uploaderId"`
	HorseID     *primitive.ObjectID `bson:"horseId,omitempty" json:"horseId,omitempty"` // Set for photos/attachments
	Purpose     UploadPurpose       `bson:"purpose" json:"purpose"`
	S3ObjectKey string              `bson:"s3ObjectKey" json:"-"` // The unique key (path/filename) in the S3 bucket - internal use
	FileName    string              `bson:"fileName" json:"fileName"`
	ContentType string              `bson:"contentType" json:"contentType"`
	Size        int64               `bson:"size" json:"size"`
	UploadedAt  time.Time           `bson:"uploadedAt" json:"uploadedAt"`
}
