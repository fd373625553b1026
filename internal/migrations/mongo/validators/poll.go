package validators

import "go.mongodb.org/mongo-driver/bson"

var PollValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"meeting_id",
			"status",
			"options",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"meeting_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"open", "closed"},
			},

			"options": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"id", "start_time", "end_time", "votes"},
					"properties": bson.M{
						"id": bson.M{
							"bsonType": "string",
						},
						"start_time": bson.M{
							"bsonType": "date",
						},
						"end_time": bson.M{
							"bsonType": "date",
						},
						"votes": bson.M{
							"bsonType": "array",
							"items": bson.M{
								"bsonType": "string",
							},
						},
					},
				},
			},

			"deadline": bson.M{
				"bsonType": "date",
			},

			"winning_option_id": bson.M{
				"bsonType": "string",
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
