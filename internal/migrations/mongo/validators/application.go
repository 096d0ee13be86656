package validators

import "go.mongodb.org/mongo-driver/bson"

var restriction = bson.M{"enum": []string{"OPEN", "CLOSED"}}

var ApplicationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"prisoner_id",
			"session_slot_id",
			"session_template_reference",
			"session_date",
			"restriction",
			"reserved_slot",
			"completed",
			"created_at",
			"modify_timestamp",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":       bson.M{"bsonType": "string"},
			"reference": bson.M{"bsonType": "string"},

			"prisoner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 20,
			},

			"prison_code":                bson.M{"bsonType": "string"},
			"session_slot_id":            bson.M{"bsonType": "string"},
			"session_template_reference": bson.M{"bsonType": "string"},
			"session_date":               bson.M{"bsonType": "date"},
			"restriction":                restriction,
			"reserved_slot":              bson.M{"bsonType": "bool"},
			"completed":                  bson.M{"bsonType": "bool"},
			"visit_id":                   bson.M{"bsonType": "string"},
			"created_at":                 bson.M{"bsonType": "date"},
			"modify_timestamp":           bson.M{"bsonType": "date"},
		},
	},
}

var VisitValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"application_id",
			"prisoner_id",
			"session_slot_id",
			"session_template_reference",
			"session_date",
			"restriction",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":                        bson.M{"bsonType": "string"},
			"reference":                  bson.M{"bsonType": "string"},
			"application_id":             bson.M{"bsonType": "string"},
			"prisoner_id":                bson.M{"bsonType": "string"},
			"prison_code":                bson.M{"bsonType": "string"},
			"session_slot_id":            bson.M{"bsonType": "string"},
			"session_template_reference": bson.M{"bsonType": "string"},
			"session_date":               bson.M{"bsonType": "date"},
			"restriction":                restriction,
			"status":                     bson.M{"enum": []string{"BOOKED", "CANCELLED"}},
			"created_at":                 bson.M{"bsonType": "date"},
			"cancelled_at":               bson.M{"bsonType": "date"},
		},
	},
}
