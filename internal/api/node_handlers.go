package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"craftbox-server/internal/database"
	"craftbox-server/internal/tree"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

type UpdateNodeRequest struct {
	Name     *string `json:"name"`
	ParentID *string `json:"parent_id"`
	ToRoot   bool    `json:"to_root"`
}

type PartialFailureResponse struct {
	Message   string   `json:"message"`
	FailedIDs []string `json:"failed_ids"`
}

// writeTreeError maps engine errors onto HTTP statuses. PartialFailure
// gets 207 with the list of remaining nodes so the client can retry
// exactly those.
func writeTreeError(w http.ResponseWriter, err error) {
	var partial *tree.PartialError
	switch {
	case errors.Is(err, tree.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, tree.ErrInvalidMove):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, tree.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, database.ErrDuplicateNodeName):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &partial):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMultiStatus)
		json.NewEncoder(w).Encode(PartialFailureResponse{
			Message:   partial.Error(),
			FailedIDs: partial.FailedIDs,
		})
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) logNodeEvent(ctx context.Context, userID int64, eventType string, payload interface{}) {
	if err := s.store.LogEvent(ctx, userID, eventType, payload); err != nil {
		log.Printf("WARN: failed to log event %s for user %d: %v", eventType, userID, err)
	}
}

// @Summary      List folder contents
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        parent_id  query  string  false  "Folder to list; omit for the root"
// @Success      200  {array}  models.Node
// @Router       /nodes [get]
func (s *Server) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	parentIDStr := r.URL.Query().Get("parent_id")

	var parentID *string
	if parentIDStr != "" {
		parentID = &parentIDStr
	}

	nodes, err := s.store.GetNodesByParentID(r.Context(), claims.UserID, parentID)
	if err != nil {
		http.Error(w, "Failed to list nodes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nodes)
}

// @Summary      Create a folder
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createFolderRequest  body  CreateFolderRequest  true  "Folder name and optional parent"
// @Success      201  {object}  models.Node
// @Failure      400  {string}  string "Invalid name or parent"
// @Failure      409  {string}  string "Duplicate sibling name"
// @Router       /nodes/folder [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ParentID != nil && len(*req.ParentID) != 21 {
		http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
		return
	}

	node, err := s.tree.CreateFolder(r.Context(), claims.UserID, req.ParentID, strings.TrimSpace(req.Name))
	recordTreeOp("create_folder", err)
	if err != nil {
		writeTreeError(w, err)
		return
	}

	s.logNodeEvent(r.Context(), claims.UserID, "node.created", node)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(node)
}

// @Summary      Upload a file
// @Description  Stores the binary payload first; the metadata record is only created after the blob is durable. On a metadata failure the blob is removed again.
// @Tags         nodes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file       formData  file    true   "File content"
// @Param        parent_id  formData  string  false  "Destination folder"
// @Success      201  {object}  models.Node
// @Router       /nodes/file [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<30)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parentIDStr := r.FormValue("parent_id")
	var parentID *string
	if parentIDStr != "" {
		if len(parentIDStr) != 21 {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}
		parentID = &parentIDStr
	}

	contentRef := uuid.NewString()
	if err := s.storage.Save(r.Context(), contentRef, file); err != nil {
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	mimeType := handler.Header.Get("Content-Type")

	node, err := s.tree.CreateFile(r.Context(), claims.UserID, parentID, handler.Filename, handler.Size, mimeType, contentRef)
	recordTreeOp("create_file", err)
	if err != nil {
		// Metadata failed, blob already stored: remove it again so
		// nothing leaks.
		if delErr := s.storage.Delete(r.Context(), contentRef); delErr != nil {
			log.Printf("WARN: orphaned blob %s after failed upload: %v", contentRef, delErr)
		}
		writeTreeError(w, err)
		return
	}

	s.logNodeEvent(r.Context(), claims.UserID, "node.created", node)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(node)
}

// @Summary      Download a file
// @Tags         nodes
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Node ID"
// @Success      200  {file}    file
// @Failure      404  {string}  string "Not found"
// @Router       /nodes/{nodeId}/download [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	nodeID := chi.URLParam(r, "nodeId")
	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve file metadata", http.StatusInternalServerError)
		return
	}
	if node == nil {
		http.Error(w, "File not found or you do not have permission to access it", http.StatusNotFound)
		return
	}
	if node.NodeType != "file" || node.ContentRef == nil {
		http.Error(w, "Cannot download a folder", http.StatusBadRequest)
		return
	}

	fileStream, err := s.storage.Get(r.Context(), *node.ContentRef)
	if err != nil {
		http.Error(w, "File not found on storage", http.StatusInternalServerError)
		return
	}
	defer fileStream.Close()

	w.Header().Set("Content-Disposition", "attachment; filename=\""+node.Name+"\"")
	if node.MimeType != nil && *node.MimeType != "" {
		w.Header().Set("Content-Type", *node.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	if node.SizeBytes != nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", *node.SizeBytes))
	}

	io.Copy(w, fileStream)
}

// @Summary      Rename or move a node
// @Description  'name' renames, 'parent_id' moves into a folder, 'to_root' moves to the root. A folder move/rename repaths the whole subtree.
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId             path  string             true  "Node ID"
// @Param        updateNodeRequest  body  UpdateNodeRequest  true  "Fields to change"
// @Success      200  {object}  models.Node
// @Failure      400  {string}  string "Validation or move rejection"
// @Failure      409  {string}  string "Duplicate sibling name"
// @Router       /nodes/{nodeId} [patch]
func (s *Server) UpdateNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == nil && req.ParentID == nil && !req.ToRoot {
		http.Error(w, "No update operation specified (provide 'name', 'parent_id' or 'to_root')", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve node", http.StatusInternalServerError)
		return
	}
	if node == nil {
		http.Error(w, "Node not found or you do not have permission to modify it", http.StatusNotFound)
		return
	}

	if req.Name != nil {
		node, err = s.tree.Rename(r.Context(), claims.UserID, nodeID, strings.TrimSpace(*req.Name))
		recordTreeOp("rename", err)
		if err != nil {
			writeTreeError(w, err)
			return
		}
		s.logNodeEvent(r.Context(), claims.UserID, "node.renamed", node)
	}

	if req.ParentID != nil || req.ToRoot {
		if req.ParentID != nil && len(*req.ParentID) != 21 {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}

		node, err = s.tree.Move(r.Context(), claims.UserID, nodeID, req.ParentID)
		recordTreeOp("move", err)
		if err != nil {
			writeTreeError(w, err)
			return
		}
		s.logNodeEvent(r.Context(), claims.UserID, "node.moved", node)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(node)
}

type DeleteNodeResponse struct {
	ParentID *string `json:"parent_id"`
}

// @Summary      Delete a node (subtree)
// @Description  Folders are deleted bottom-up together with all descendants and their blobs. The former parent is returned so a client viewing the deleted folder can navigate away.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Node ID"
// @Success      200  {object}  DeleteNodeResponse "Folder deleted; body carries the former parent"
// @Success      204  {string}  string "File deleted"
// @Failure      207  {object}  PartialFailureResponse "Some descendants could not be removed"
// @Failure      404  {string}  string "Not found"
// @Router       /nodes/{nodeId} [delete]
func (s *Server) DeleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	node, err := s.tree.Delete(r.Context(), claims.UserID, nodeID)
	recordTreeOp("delete", err)
	if err != nil {
		if node != nil {
			// Częściowe kasowanie też zmienia stan - klienci muszą odświeżyć widok.
			s.logNodeEvent(r.Context(), claims.UserID, "node.deleted", map[string]interface{}{"id": node.ID, "partial": true})
		}
		writeTreeError(w, err)
		return
	}

	s.logNodeEvent(r.Context(), claims.UserID, "node.deleted", map[string]interface{}{"id": node.ID})

	// Po skasowaniu folderu klient może właśnie oglądać jego wnętrze -
	// dostaje parent_id, żeby miał dokąd nawigować.
	if node.NodeType == "folder" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DeleteNodeResponse{ParentID: node.ParentID})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type RepairPathsResponse struct {
	Repaired int `json:"repaired"`
}

// @Summary      Repair derived paths under a folder
// @Description  Re-derives every descendant path from the parent chain. Retry hook for a rename/move whose path propagation was interrupted (207): calling it again on the reported subtree roots converges to a fully consistent tree.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Folder ID"
// @Success      200  {object}  RepairPathsResponse
// @Failure      207  {object}  PartialFailureResponse "Some records still could not be rewritten"
// @Failure      404  {string}  string "Not found"
// @Router       /nodes/{nodeId}/repair [post]
func (s *Server) RepairNodePathsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	repaired, err := s.tree.RepairPaths(r.Context(), claims.UserID, nodeID)
	recordTreeOp("repair", err)
	if err != nil {
		writeTreeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RepairPathsResponse{Repaired: repaired})
}

// @Summary      Breadcrumbs for a node
// @Description  Ancestor chain ordered root to leaf. A broken parent link yields the longest resolvable partial chain instead of an error.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Node ID"
// @Success      200  {array}   models.Node
// @Failure      404  {string}  string "Not found"
// @Router       /nodes/{nodeId}/path [get]
func (s *Server) GetNodePathHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	chain, err := s.tree.ResolvePath(r.Context(), claims.UserID, nodeID)
	if err != nil {
		writeTreeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chain)
}
