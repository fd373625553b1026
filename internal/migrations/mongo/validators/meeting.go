package validators

import "go.mongodb.org/mongo-driver/bson"

var MeetingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"title",
			"organizer_email",
			"participants",
			"start_time",
			"end_time",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"organizer_email": bson.M{
				"bsonType": "string",
				"pattern":  `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
			},

			"participants": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 200,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"email", "name"},
					"properties": bson.M{
						"email": bson.M{
							"bsonType": "string",
							"pattern":  `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
						},
						"name": bson.M{
							"bsonType":  "string",
							"minLength": 1,
							"maxLength": 100,
						},
					},
				},
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"scheduled", "confirmed", "cancelled", "rescheduled", "polling"},
			},

			"metadata": bson.M{
				"bsonType": "object",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
