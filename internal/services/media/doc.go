// Package media stores user-uploaded images in Supabase Storage.
package media
