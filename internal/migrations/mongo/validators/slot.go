package validators

import "go.mongodb.org/mongo-driver/bson"

var SessionSlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"reference", "session_template_reference", "slot_date", "start_time", "end_time"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":                        bson.M{"bsonType": "string"},
			"reference":                  bson.M{"bsonType": "string"},
			"session_template_reference": bson.M{"bsonType": "string"},
			"prison_code":                bson.M{"bsonType": "string"},
			"slot_date":                  bson.M{"bsonType": "date"},
			"start_time":                 bson.M{"bsonType": "string"},
			"end_time":                   bson.M{"bsonType": "string"},
			"created_at":                 bson.M{"bsonType": "date"},
		},
	},
}

var SlotLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"token", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"token":      bson.M{"bsonType": "string"},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
