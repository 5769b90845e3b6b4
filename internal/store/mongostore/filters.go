package mongostore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/store"
)

func containsFold(text string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
}

// taskFilter translates q into a task collection filter. It mirrors
// access.TaskQuery.Matches.
func taskFilter(q access.TaskQuery) bson.M {
	var and bson.A

	if sc := q.Scope; sc != nil {
		union := bson.A{
			bson.M{"project": nil},
			bson.M{"createdBy": sc.UserID},
			bson.M{"assignedTo": sc.UserID},
		}
		if len(sc.ProjectIDs) > 0 {
			union = append(union, bson.M{"project": bson.M{"$in": sc.ProjectIDs}})
		}
		and = append(and, bson.M{"$or": union})
	}

	f := q.Filter
	if f.ProjectID != "" {
		and = append(and, bson.M{"project": f.ProjectID})
	}
	if f.Status != "" {
		and = append(and, bson.M{"status": string(f.Status)})
	}
	if f.Priority != "" {
		and = append(and, bson.M{"priority": string(f.Priority)})
	}
	if f.AssignedTo != "" {
		and = append(and, bson.M{"assignedTo": f.AssignedTo})
	}
	if f.Involving != "" {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"createdBy": f.Involving},
			bson.M{"assignedTo": f.Involving},
		}})
	}
	if len(f.Labels) > 0 {
		and = append(and, bson.M{"labels": bson.M{"$in": f.Labels}})
	}
	if f.Text != "" {
		re := containsFold(f.Text)
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}})
	}

	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

// projectAccessFilter selects the projects userID owns or belongs to
func projectAccessFilter(userID string, f store.ProjectFilter) bson.M {
	and := bson.A{bson.M{"$or": bson.A{
		bson.M{"owner": userID},
		bson.M{"members": userID},
	}}}
	if f.Status != "" {
		and = append(and, bson.M{"status": string(f.Status)})
	}
	if f.Text != "" {
		re := containsFold(f.Text)
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}})
	}
	return bson.M{"$and": and}
}

func activityFilter(f store.ActivityFilter) bson.M {
	switch {
	case f.ProjectID != "":
		return bson.M{"project": f.ProjectID}
	case len(f.ProjectIDs) > 0:
		return bson.M{"$or": bson.A{
			bson.M{"user": f.UserID},
			bson.M{"project": bson.M{"$in": f.ProjectIDs}},
		}}
	default:
		return bson.M{"user": f.UserID}
	}
}

func userFilter(f store.UserFilter) bson.M {
	if f.Text == "" {
		return bson.M{}
	}
	re := containsFold(f.Text)
	return bson.M{"$or": bson.A{bson.M{"name": re}, bson.M{"email": re}}}
}

// toggleSubtaskPipeline flips the completed flag of one embedded subtask
// inside a single update
func toggleSubtaskPipeline(subtaskID string, now interface{}) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "subtasks", Value: bson.D{{Key: "$map", Value: bson.D{
				{Key: "input", Value: "$subtasks"},
				{Key: "as", Value: "s"},
				{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$$s._id", bson.D{{Key: "$literal", Value: subtaskID}}}}},
					bson.D{{Key: "$mergeObjects", Value: bson.A{
						"$$s",
						bson.D{{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$$s.completed"}}}}},
					}}},
					"$$s",
				}}}},
			}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
}
