package repository

import (
	"context"
	"fmt"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
)

// CascadeResult 级联删除的结果
type CascadeResult struct {
	Removed   map[model.ContentType][]int // 被删除的内容
	MediaKeys []string                    // 需要从远程存储删除的文件
}

func (r *CascadeResult) add(t model.ContentType, id int, mediaKey string) {
	r.Removed[t] = append(r.Removed[t], id)
	if mediaKey != "" {
		r.MediaKeys = append(r.MediaKeys, mediaKey)
	}
}

// CascadeRepository 内容级联删除，必须在事务 ctx 中调用
type CascadeRepository struct {
	db *gorm.DB
}

func NewCascadeRepository(db *gorm.DB) *CascadeRepository {
	return &CascadeRepository{db: db}
}

// Delete 删除内容及所有引用它的数据；内容不存在时返回 nil, nil
func (r *CascadeRepository) Delete(ctx context.Context, t model.ContentType, id int) (*CascadeResult, error) {
	res := &CascadeResult{Removed: make(map[model.ContentType][]int)}
	var err error
	var found bool
	switch t {
	case model.TypeArticle:
		found, err = r.deleteArticle(ctx, id, res)
	case model.TypeVideo:
		found, err = r.deleteVideo(ctx, id, res)
	case model.TypeFormation:
		found, err = r.deleteFormation(ctx, id, res)
	case model.TypeParcours:
		found, err = r.deleteParcours(ctx, id, res)
	default:
		return nil, fmt.Errorf("未知内容类型: %s", t)
	}
	if err != nil || !found {
		return nil, err
	}
	return res, nil
}

func (r *CascadeRepository) deleteArticle(ctx context.Context, id int, res *CascadeResult) (bool, error) {
	var a model.Article
	if tx := conn(ctx, r.db).Limit(1).Find(&a, id); tx.Error != nil || tx.RowsAffected == 0 {
		return false, tx.Error
	}
	if err := r.purgeRefs(ctx, model.TypeArticle, []int{id}); err != nil {
		return false, err
	}
	if err := conn(ctx, r.db).Delete(&model.Article{}, id).Error; err != nil {
		return false, err
	}
	res.add(model.TypeArticle, id, a.MediaKey)
	return true, nil
}

func (r *CascadeRepository) deleteVideo(ctx context.Context, id int, res *CascadeResult) (bool, error) {
	var v model.Video
	if tx := conn(ctx, r.db).Limit(1).Find(&v, id); tx.Error != nil || tx.RowsAffected == 0 {
		return false, tx.Error
	}
	if err := conn(ctx, r.db).Where("video_id = ?", id).Delete(&model.VideoFormation{}).Error; err != nil {
		return false, err
	}
	if err := r.purgeRefs(ctx, model.TypeVideo, []int{id}); err != nil {
		return false, err
	}
	if err := conn(ctx, r.db).Delete(&model.Video{}, id).Error; err != nil {
		return false, err
	}
	res.add(model.TypeVideo, id, v.MediaKey)
	return true, nil
}

// deleteFormation 同时删除只属于该课程的视频
func (r *CascadeRepository) deleteFormation(ctx context.Context, id int, res *CascadeResult) (bool, error) {
	var f model.Formation
	if tx := conn(ctx, r.db).Limit(1).Find(&f, id); tx.Error != nil || tx.RowsAffected == 0 {
		return false, tx.Error
	}

	var memberIDs []int
	if err := conn(ctx, r.db).Model(&model.VideoFormation{}).
		Where("formation_id = ?", id).Pluck("video_id", &memberIDs).Error; err != nil {
		return false, err
	}

	var owned []*model.Video
	if len(memberIDs) > 0 {
		var shared []int
		if err := conn(ctx, r.db).Model(&model.VideoFormation{}).
			Where("video_id IN ? AND formation_id <> ?", memberIDs, id).
			Pluck("video_id", &shared).Error; err != nil {
			return false, err
		}
		sharedSet := make(map[int]bool, len(shared))
		for _, vid := range shared {
			sharedSet[vid] = true
		}
		var ownedIDs []int
		for _, vid := range memberIDs {
			if !sharedSet[vid] {
				ownedIDs = append(ownedIDs, vid)
			}
		}
		if len(ownedIDs) > 0 {
			if err := conn(ctx, r.db).Where("id IN ?", ownedIDs).Find(&owned).Error; err != nil {
				return false, err
			}
		}
	}
	ownedIDs := make([]int, 0, len(owned))
	for _, v := range owned {
		ownedIDs = append(ownedIDs, v.ID)
	}

	// 关联表
	if err := conn(ctx, r.db).Where("formation_id = ?", id).Delete(&model.VideoFormation{}).Error; err != nil {
		return false, err
	}
	if err := conn(ctx, r.db).Where("formation_id = ?", id).Delete(&model.FormationParcours{}).Error; err != nil {
		return false, err
	}

	// 引用数据
	if err := r.purgeRefs(ctx, model.TypeFormation, []int{id}); err != nil {
		return false, err
	}
	if err := conn(ctx, r.db).Where("formation_id = ?", id).Delete(&model.Rating{}).Error; err != nil {
		return false, err
	}
	if len(ownedIDs) > 0 {
		if err := r.purgeRefs(ctx, model.TypeVideo, ownedIDs); err != nil {
			return false, err
		}
		if err := conn(ctx, r.db).Where("id IN ?", ownedIDs).Delete(&model.Video{}).Error; err != nil {
			return false, err
		}
	}

	if err := conn(ctx, r.db).Delete(&model.Formation{}, id).Error; err != nil {
		return false, err
	}

	for _, v := range owned {
		res.add(model.TypeVideo, v.ID, v.MediaKey)
	}
	res.add(model.TypeFormation, id, f.MediaKey)
	return true, nil
}

// deleteParcours 只删除路径本身，课程保留
func (r *CascadeRepository) deleteParcours(ctx context.Context, id int, res *CascadeResult) (bool, error) {
	var p model.Parcours
	if tx := conn(ctx, r.db).Limit(1).Find(&p, id); tx.Error != nil || tx.RowsAffected == 0 {
		return false, tx.Error
	}
	if err := conn(ctx, r.db).Where("parcours_id = ?", id).Delete(&model.FormationParcours{}).Error; err != nil {
		return false, err
	}
	if err := r.purgeRefs(ctx, model.TypeParcours, []int{id}); err != nil {
		return false, err
	}
	if err := conn(ctx, r.db).Delete(&model.Parcours{}, id).Error; err != nil {
		return false, err
	}
	res.add(model.TypeParcours, id, p.MediaKey)
	return true, nil
}

// purgeRefs 删除购买、进度、评论、通知中对内容的引用
func (r *CascadeRepository) purgeRefs(ctx context.Context, t model.ContentType, ids []int) error {
	for _, m := range []interface{}{&model.Purchase{}, &model.History{}, &model.Comment{}, &model.Notification{}} {
		if err := conn(ctx, r.db).Where("type = ? AND item_id IN ?", t, ids).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
