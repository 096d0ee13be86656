package validators

import "go.mongodb.org/mongo-driver/bson"

var groupItems = bson.M{
	"bsonType": "object",
	"required": []string{"name"},
	"properties": bson.M{
		"reference": bson.M{"bsonType": "string"},
		"name":      bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
	},
}

var SessionTemplateValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"name",
			"prison_code",
			"day_of_week",
			"start_time",
			"end_time",
			"weekly_frequency",
			"valid_from",
			"open_capacity",
			"closed_capacity",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"reference": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 40,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"prison_code": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 10,
			},

			"day_of_week": bson.M{
				"enum": []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"},
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"weekly_frequency": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  12,
			},

			"valid_from": bson.M{"bsonType": "date"},
			"valid_to":   bson.M{"bsonType": []string{"date", "null"}},

			"open_capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"closed_capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"include_location_group_type": bson.M{"bsonType": "bool"},
			"location_groups":             bson.M{"bsonType": "array", "items": groupItems},
			"category_groups":             bson.M{"bsonType": "array", "items": groupItems},
			"incentive_level_groups":      bson.M{"bsonType": "array", "items": groupItems},

			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
